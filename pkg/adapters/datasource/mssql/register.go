package mssql

import (
	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.KindInfo{
			Kind:        datasource.KindMSSQL,
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2019+, Azure SQL Database",
		},
		Blocking: NewBinding(),
	})
}
