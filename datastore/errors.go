package datastore

// The connect-phase errors (OpenError, ConnectError, SchemaError) are fatal:
// main logs them and exits instead of serving traffic. QueryError is the
// runtime failure handlers translate into a 500 response.

type OpenError struct {
	Err error
}

func (e *OpenError) Error() string { return "opening database: " + e.Err.Error() }
func (e *OpenError) Unwrap() error { return e.Err }

type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string { return "connecting to database: " + e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return "creating schema: " + e.Err.Error() }
func (e *SchemaError) Unwrap() error { return e.Err }

type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return "query failed: " + e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }
