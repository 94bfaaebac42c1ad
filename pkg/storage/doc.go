// Package storage defines the durable key/value contract used by the Flagsmith
// client for state that has to outlive a single process.
//
// Two backends ship with the package:
//
//   - Memory keeps values in a map and is intended for tests.
//   - File writes one file per key using atomic rename, suitable for desktop
//     tools and single-host services.
//
// A Redis backend lives in the sibling redis package.
//
// # Usage
//
//	store, err := storage.NewFile(filepath.Join(os.TempDir(), "flagsmith"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := flagsmith.New(cfg, flagsmith.WithStorage(store))
//
// Missing keys are reported as a nil value with a nil error rather than a
// sentinel error, matching the Fiber-style storages used elsewhere.
package storage
