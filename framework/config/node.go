package config

import cfgparser "github.com/ietf-svn-conversion/postconfirm/framework/cfgparser"

// Node and NodeErr are re-exported from framework/cfgparser so the rest of
// this package (which predates the parser/binder split) can keep referring
// to them unqualified.
type Node = cfgparser.Node

func NodeErr(node Node, f string, args ...interface{}) error {
	return cfgparser.NodeErr(node, f, args...)
}
