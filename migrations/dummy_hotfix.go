package migrations

import "github.com/blockberries/tokenchain/merkle"

// dummyHotfix does nothing. It exists purely so the registry-loading
// and activation-gating logic has at least one migration configured
// with disabled=true in the reference migrations config, and so tests
// can exercise a no-op migration without special-casing it.
type dummyHotfix struct{}

// DummyHotfix is the named migration instance.
var DummyHotfix Migration = dummyHotfix{}

func (dummyHotfix) Name() string { return "Dummy Hotfix" }

func (dummyHotfix) Initialize(*merkle.Store, map[string]string) error { return nil }

func (dummyHotfix) TransformRead(_, data []byte) []byte { return data }

func (dummyHotfix) EndpointGate(string) bool { return true }
