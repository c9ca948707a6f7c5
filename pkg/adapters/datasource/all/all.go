// Package all registers every datasource adapter that builds without extra
// system libraries. Oracle registers itself only when built with the
// "oracle" tag.
package all

import (
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/cassandra"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/elasticsearch"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/mongodb"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/oracle"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/redis"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/sqlite"
)
