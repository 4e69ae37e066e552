// Package rpc provides a comprehensive framework for remote procedure calls
// in the cellar store. It acts as the communication layer between clients
// and servers, enabling store operations across network boundaries.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol and configuration structures.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Msgpack, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The RPC client implementation of the store interface,
//     allowing applications to interact with a remote store transparently.
//
//   - server: RPC server components that handle incoming requests, including
//     the adapter for domain-addressed store operations.
//
//   - discovery: Zero-configuration server discovery on the local network
//     via multicast DNS.
package rpc
