package requestid_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagsmith/pkg/logger"
	"github.com/dmitrymomot/flagsmith/pkg/requestid"
)

func TestEnsure(t *testing.T) {
	t.Parallel()

	t.Run("keeps a valid id", func(t *testing.T) {
		t.Parallel()
		ctx := requestid.WithContext(context.Background(), "checkout-42")
		got, id := requestid.Ensure(ctx)
		assert.Equal(t, "checkout-42", id)
		assert.Equal(t, ctx, got)
	})

	t.Run("generates a missing id", func(t *testing.T) {
		t.Parallel()
		ctx, id := requestid.Ensure(context.Background())
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, requestid.FromContext(ctx))
	})

	t.Run("replaces an invalid id", func(t *testing.T) {
		t.Parallel()
		ctx := requestid.WithContext(context.Background(), "bad id\r\nX-Injected: 1")
		_, id := requestid.Ensure(ctx)
		assert.NotContains(t, id, " ")
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	})
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, requestid.Valid("abc_DEF-123"))
	for _, id := range []string{
		"",
		"test@request#id",
		"test request id",
		"test/request/id",
		"test<script>alert(1)</script>",
		strings.Repeat("a", 129),
	} {
		assert.False(t, requestid.Valid(id), id)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.Header, "from-client")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "from-client", seen)
	assert.Equal(t, "from-client", rec.Header().Get(requestid.Header))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.Header, "not valid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not valid", seen)
	assert.Equal(t, seen, rec.Header().Get(requestid.Header))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatText),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.WarnContext(requestid.WithContext(context.Background(), "abc-1"), "with id")
	log.WarnContext(context.Background(), "without id")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "request_id=abc-1")
	assert.NotContains(t, lines[1], "request_id")
}
