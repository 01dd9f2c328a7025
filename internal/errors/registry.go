package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E029)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Hook called outside render",
		Detail:   "Hooks must be called with the Owner passed to the component's render function, while that render is in progress.",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Hook order changed",
		Detail:   "Hooks must be called in the same order on every render. Conditional or looped hook calls shift the slot index.",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Owner disposed",
		Detail:   "The component owner has been disposed. Its stores and effects are no longer live.",
	},
	"E021": {
		Category: CategoryRuntime,
		Message:  "Render loop limit exceeded",
		Detail:   "The component kept setting state during render. Move state updates into effects or event handlers.",
	},

	// ============================================
	// State Errors (E030-E059)
	// ============================================

	"E031": {
		Category: CategoryState,
		Message:  "Update before initialization",
		Detail:   "An updater was applied to a store that has never been initialized and the store rejects uninitialized updates.",
	},
	"E040": {
		Category: CategoryState,
		Message:  "Dependency snapshot not serializable",
		Detail:   "The effect dependencies could not be encoded for comparison. The effect is treated as changed.",
	},
	"E041": {
		Category: CategoryState,
		Message:  "Effect callback panicked",
		Detail:   "The effect callback did not return. Its dependencies were not recorded, so the next run retries.",
	},

	// ============================================
	// Config Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Configuration parse error",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or not recognized.",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Configuration not found",
		Detail:   "No hookstore configuration file was found.",
	},

	// ============================================
	// Storage Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryStorage,
		Message:  "Snapshot write failed",
		Detail:   "The snapshot sink could not persist the store value.",
	},
	"E161": {
		Category: CategoryStorage,
		Message:  "Snapshot read failed",
		Detail:   "The snapshot sink could not load a stored value.",
	},
	"E162": {
		Category: CategoryStorage,
		Message:  "Snapshot sink unavailable",
		Detail:   "The configured snapshot sink could not be created.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
