// Package common provides core data structures shared across the RPC layer
// of the key-value store. It defines the wire protocol and the configuration
// structures used by clients, servers and transports.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a flexible
//     field set that adapts to the different store operations. Includes
//     factory methods for creating the various request and response messages.
//
//   - MessageType: Enumeration defining all supported operation types,
//     categorized into store operations and control messages.
//
//   - ServerConfig: Configuration for server nodes, covering the served
//     shards, the store parameters they are opened with, transport settings
//     and operation modes.
//
//   - ClientConfig: Configuration for client components, controlling
//     connection parameters, timeouts and retry behavior.
package common
