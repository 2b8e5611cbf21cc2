// Package server implements the real-time core of TrailHub: the WebSocket
// hub, the session registry, the presence coordinator driving the
// register/update/disconnect protocol, and the REST query facade.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, presence, routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
