package all

import (
	"testing"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func TestAllUntaggedKindsRegistered(t *testing.T) {
	for _, kind := range datasource.Kinds() {
		if kind == datasource.KindOracle {
			continue
		}
		if !datasource.IsRegistered(kind) {
			t.Errorf("expected %s to be registered", kind)
		}
	}
}

func TestRegisteredKinds_Order(t *testing.T) {
	infos := datasource.RegisteredKinds()
	if len(infos) != len(datasource.Kinds()) {
		t.Fatalf("expected %d kinds, got %d", len(datasource.Kinds()), len(infos))
	}
	for i, kind := range datasource.Kinds() {
		if infos[i].Kind != kind {
			t.Errorf("infos[%d] = %s, want %s", i, infos[i].Kind, kind)
		}
	}
}
