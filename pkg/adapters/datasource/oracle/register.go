//go:build oracle || all_adapters

package oracle

import (
	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.KindInfo{
			Kind:        datasource.KindOracle,
			DisplayName: "Oracle",
			Description: "Connect to Oracle Database 12c+ (requires Instant Client)",
		},
		Blocking: NewBinding(),
	})
}
