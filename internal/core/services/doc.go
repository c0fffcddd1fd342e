// Package services implements the driving port interfaces.
// Services contain the core business logic - scope classification,
// hybrid retrieval, context assembly, answering, conversation state
// and index maintenance - and orchestrate calls to driven ports.
//
// Services are pure Go with no CGO.
package services
