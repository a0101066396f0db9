/*
Package configstore provides a single-rooted, read-only view of the
on-disk world configuration hierarchy consumed by crld:

	<root>/Events/docker-compose.yml
	<root>/Events/<event>/docker-compose.yml
	<root>/Events/<event>/<user>/docker-compose.yml
	<root>/Events/<event>/<user>/peer/peer_<user>.conf

The existence of the peer config file is the ground truth for "this world
has been created at least once"; nothing else in crld writes to this
hierarchy directly — all mutation happens through the blocking ops in
internal/worldops, which write the world descriptor and peer config,
remove the world directory, and shell out to the orchestrator for the
stack itself.
*/
package configstore
