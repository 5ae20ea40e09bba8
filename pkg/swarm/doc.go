/*
Package swarm provides the cluster control-plane client.

The Client interface covers the operations the fleet manager needs from
Docker Swarm: cluster init and join-token retrieval for bootstrap, node
list/inspect/drain/remove for lifecycle management, and task listing
plus service resource inspection for usage aggregation. DockerClient
implements it against the Docker Engine API; tests substitute in-memory
fakes.

# Usage

	cli, err := swarm.NewDockerClient("") // DOCKER_HOST or default socket
	if err != nil {
		return err
	}

	nodes, err := cli.ListNodes(ctx)

Node state strings (ready, down, disconnected) pass through raw; status
classification into the fleet's node status enum happens in the fleet
package, keeping this client a thin transport.
*/
package swarm
