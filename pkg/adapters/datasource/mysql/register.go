package mysql

import (
	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.KindInfo{
			Kind:        datasource.KindMySQL,
			DisplayName: "MySQL",
			Description: "Connect to MySQL 5.7+, MariaDB, Aurora MySQL",
		},
		Blocking:    NewBinding(datasource.Blocking),
		NonBlocking: NewBinding(datasource.NonBlocking),
	})
}
