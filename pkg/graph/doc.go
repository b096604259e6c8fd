// Package graph defines the procedural node graph: modules with typed ports,
// the connections between them, and the reverse index the evaluator uses to
// find the producers feeding each input. Modules are polymorphic through the
// ValueModule and ObjectModule capability interfaces; concrete variants live
// in package modules.
package graph
