package sqlite

import (
	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.KindInfo{
			Kind:        datasource.KindSQLite,
			DisplayName: "SQLite",
			Description: "Open a local SQLite database file",
		},
		Blocking: NewBinding(),
	})
}
