package graph

// Endpoint is one end of a connection: a module and a port index on it.
type Endpoint struct {
	Module ModuleID
	Port   int
}

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	From Endpoint // producer output
	To   Endpoint // consumer input
}

// ConnectionIndex maps each (module, input port) to the producers feeding
// it, in the order their connections were created.
type ConnectionIndex struct {
	producers map[Endpoint][]Endpoint
	edges     int
}

// BuildIndex indexes conns in O(len(conns)).
func BuildIndex(conns []Connection) *ConnectionIndex {
	ix := &ConnectionIndex{producers: make(map[Endpoint][]Endpoint, len(conns))}
	for _, c := range conns {
		ix.producers[c.To] = append(ix.producers[c.To], c.From)
	}
	ix.edges = len(conns)
	return ix
}

// Producers returns the producers feeding the given input port. The slice
// must not be modified.
func (ix *ConnectionIndex) Producers(module ModuleID, port int) []Endpoint {
	if ix == nil {
		return nil
	}
	return ix.producers[Endpoint{Module: module, Port: port}]
}

// Len returns the number of indexed connections.
func (ix *ConnectionIndex) Len() int {
	if ix == nil {
		return 0
	}
	return ix.edges
}
