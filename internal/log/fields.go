package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldGroupID       = "group_id"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldMoneyType     = "money_type"
	FieldCurrency      = "currency"
	FieldAmount        = "amount"
	FieldEventKind     = "event_kind"
	FieldEventID       = "event_id"
)

// Component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentBot        = "bot"
	ComponentClassifier = "classifier"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentCache      = "cache"
	ComponentRateLimit  = "rate_limit"
	ComponentCLI        = "cli"
)

// Operation names
const (
	OpRecord   = "record"
	OpExchange = "exchange"
	OpQuery    = "query"
	OpDelete   = "delete"
	OpClear    = "clear"
	OpRename   = "rename"
	OpList     = "list"
	OpMirror   = "mirror"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields is a builder for structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithError adds the error message; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithScope adds the conversation scope and author.
func (f LogFields) WithScope(groupID, userID int64) LogFields {
	f[FieldGroupID] = groupID
	if userID != 0 {
		f[FieldUserID] = userID
	}
	return f
}

// WithEntry adds the fields identifying one ledger row.
func (f LogFields) WithEntry(id int64, category, moneyType, currency, amount string) LogFields {
	f[FieldTransactionID] = id
	f[FieldCategory] = category
	f[FieldMoneyType] = moneyType
	f[FieldCurrency] = currency
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithEvent(id, kind string) LogFields {
	f[FieldEventID] = id
	f[FieldEventKind] = kind
	return f
}

func (f LogFields) WithHTTPRequest(method, path, clientIP string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldClientIP] = clientIP
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
