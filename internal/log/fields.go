package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldMethod     = "method"
	FieldPeer       = "peer"
	FieldCode       = "code"
	FieldDuration   = "duration_ms"
	FieldID         = "id"
	FieldNumRef     = "num_ref"
	FieldLines      = "lines"
	FieldActor      = "actor"
	FieldEvent      = "event"
	FieldBackend    = "backend"
	FieldAddress    = "address"
	FieldServiceIDs = "service_ids"
	FieldYear       = "year"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentGRPC       = "grpc"
	ComponentStorage    = "storage"
	ComponentHierarchy  = "hierarchy"
	ComponentLedger     = "ledger"
	ComponentDerogation = "derogation"
	ComponentAnalysis   = "analysis"
	ComponentAMQP       = "amqp"
	ComponentRateLimit  = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpRestore  = "restore"
	OpList     = "list"
	OpPublish  = "publish"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
