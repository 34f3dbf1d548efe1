// Package errors provides structured, actionable errors for the remoteui
// command line.
//
// Each error carries a code that maps to a registered message and detail,
// plus an optional hint on how to fix it. The CLI prints them with Format;
// library packages keep returning plain sentinel errors.
//
//	err := errors.New("R101").
//	    WithDetail("tick_rate must be between 1 and 240").
//	    WithSuggestion("Set tick_rate: 30 in remoteui.yaml")
//
//	fmt.Print(err.Format())
//	// ERROR R101: Invalid configuration
//	//
//	//   tick_rate must be between 1 and 240
//	//
//	//   Hint: Set tick_rate: 30 in remoteui.yaml
package errors
