package flagsmith

import (
	"github.com/dmitrymomot/flagsmith/pkg/remote"
	"github.com/dmitrymomot/flagsmith/pkg/storage"
)

type (
	Flag                   = remote.Flag
	Feature                = remote.Feature
	Trait                  = remote.Trait
	Identity               = remote.Identity
	TraitWithIdentity      = remote.TraitWithIdentity
	IdentityFlagsAndTraits = remote.IdentityFlagsAndTraits

	// Storage persists analytics counters and cached responses.
	Storage = storage.Storage
)
