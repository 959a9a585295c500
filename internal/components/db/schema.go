package db

import _ "embed"

//go:embed schema.sql
var Schema string

type RunStatus string

const (
	RUN_STATUS_RUNNING      RunStatus = "running"
	RUN_STATUS_OK           RunStatus = "ok"
	RUN_STATUS_FAILED       RunStatus = "failed"
	RUN_STATUS_LOGIN_FAILED RunStatus = "login-failed"
)
