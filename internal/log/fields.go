package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldMonth         = "month"
	FieldPeriod        = "period"
	FieldWalletID      = "wallet_id"
	FieldCategoryID    = "category_id"
	FieldCategoryLabel = "category_label"
	FieldKind          = "kind"
	FieldAmountCents   = "amount_cents"
	FieldBudgetID      = "budget_id"
	FieldPercentage    = "percentage"
	FieldStatus        = "status"
	FieldTable         = "table"
	FieldDropped       = "dropped"
	FieldBackend       = "backend"
	FieldCount         = "count"
	FieldMessageID     = "message_id"
	FieldAttempt       = "attempt"
	FieldRate          = "rate"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDashboard = "dashboard"
	ComponentBudget    = "budget"
	ComponentStorage   = "storage"
	ComponentSource    = "source"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentRates     = "rates"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpsert    = "upsert"
	OpDelete    = "delete"
	OpList      = "list"
	OpNormalize = "normalize"
	OpAggregate = "aggregate"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpSweep     = "sweep"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
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

// WithTransaction adds transaction fields
func (f LogFields) WithTransaction(kind string, amountCents int64, walletID, categoryID string) LogFields {
	f[FieldKind] = kind
	f[FieldAmountCents] = amountCents
	f[FieldWalletID] = walletID
	f[FieldCategoryID] = categoryID
	return f
}

// WithAlert adds budget alert fields
func (f LogFields) WithAlert(budgetID, label, month string, percentage float64, status string) LogFields {
	f[FieldBudgetID] = budgetID
	f[FieldCategoryLabel] = label
	f[FieldMonth] = month
	f[FieldPercentage] = percentage
	f[FieldStatus] = status
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
