/*
Package ports defines the driven ports (interfaces) of the USSD gateway.

These interfaces decouple the dialog engine from external implementations,
allowing it to work with various storage backends and transports.

# Key Interfaces

  - SessionStore: persists the per-conversation Session context.
  - DistributedLocker: serialises access to a session across replicas.
  - UserRepository and ShipmentRepository: durable business data used by hooks.
  - DialogHandler: the inbound port driven by HTTP, MCP and the simulator.
*/
package ports
