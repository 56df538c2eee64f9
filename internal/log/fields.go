package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldDimension = "dimension"
	FieldUnit      = "unit"
	FieldFrom      = "from"
	FieldTo        = "to"
	FieldEntries   = "entries"
	FieldGroups    = "groups"
	FieldSeconds   = "total_seconds"
	FieldTotal     = "total"
	FieldPath      = "path"
	FieldView      = "view"
)

// Components
const (
	ComponentApp    = "app"
	ComponentStore  = "store"
	ComponentReport = "report"
	ComponentExport = "export"
	ComponentCLI    = "cli"
	ComponentTUI    = "tui"
	ComponentConfig = "config"
)

// Operations
const (
	OpSummary  = "summary"
	OpCompare  = "compare"
	OpInvoice  = "invoice"
	OpMigrate  = "migrate"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Fields is a small builder for structured log arguments.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) With(key string, value any) Fields {
	f[key] = value
	return f
}

// ToSlice converts Fields to a slice for slog
func (f Fields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
