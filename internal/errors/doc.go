// Package errors provides coded, actionable errors for hookstore.
//
// Every error carries a short code (e.g. "E002") registered in a central
// table with a category, a one-line message and a longer explanation.
// Hook misuse is reported by panicking with one of these errors; I/O paths
// (configuration, snapshot sinks, the HTTP service) return them.
//
// # Error Categories
//
//   - runtime: hook and render misuse (hook outside render, order changed)
//   - state: store and effect edge cases (update before initialization)
//   - config: configuration loading and validation
//   - storage: snapshot sink failures
//
// # Usage
//
//	err := errors.New("E002").
//	    WithDetail("expected 3 hooks, got 2").
//	    WithSuggestion("Call hooks unconditionally at the top of the component")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E002: Hook order changed
//	//
//	//   expected 3 hooks, got 2
//	//
//	//   Hint: Call hooks unconditionally at the top of the component
package errors
