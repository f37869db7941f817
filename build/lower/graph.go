// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lower

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/gx-org/backend/shape"
)

// FormatVersion is the version of the serialization format of graphs.
const FormatVersion = 1

type (
	// Value is a named tensor of the graph.
	Value struct {
		Name  string      `msgpack:"name"`
		Shape shape.Shape `msgpack:"shape"`
	}

	// Node applies an operator to values.
	Node struct {
		Name string `msgpack:"name"`
		// Op is the name of the flow implementing the operator.
		Op     string   `msgpack:"op"`
		Inputs []string `msgpack:"inputs"`
		Output Value    `msgpack:"output"`
		// Attributes are the sizes bound by the call to the operator.
		Attributes map[string]int64 `msgpack:"attributes,omitempty"`
	}

	// Initializer is a trainable parameter.
	Initializer struct {
		Name string `msgpack:"name"`
		// Param is the name given to Trainable in the source.
		Param string      `msgpack:"param"`
		Shape shape.Shape `msgpack:"shape"`
	}

	// Graph is a flow lowered to operators.
	Graph struct {
		Version      int           `msgpack:"version"`
		Name         string        `msgpack:"name"`
		Inputs       []Value       `msgpack:"inputs"`
		Initializers []Initializer `msgpack:"initializers"`
		Nodes        []Node        `msgpack:"nodes"`
		Outputs      []Value       `msgpack:"outputs"`
	}
)

// Encode writes the graph in msgpack format.
func (g *Graph) Encode(w io.Writer) error {
	return errors.WithStack(msgpack.NewEncoder(w).Encode(g))
}

// Decode reads a graph written by Encode.
func Decode(r io.Reader) (*Graph, error) {
	g := &Graph{}
	if err := msgpack.NewDecoder(r).Decode(g); err != nil {
		return nil, errors.Wrap(err, "cannot decode graph")
	}
	if g.Version != FormatVersion {
		return nil, errors.Errorf("unsupported graph format version %d: want %d", g.Version, FormatVersion)
	}
	return g, nil
}

func shapeString(sh shape.Shape) string {
	axes := make([]string, len(sh.AxisLengths))
	for i, n := range sh.AxisLengths {
		axes[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(axes, ", ") + "]"
}

func (n *Node) attributesString() string {
	if len(n.Attributes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]string, len(keys))
	for i, k := range keys {
		attrs[i] = fmt.Sprintf("%s=%d", k, n.Attributes[k])
	}
	return " {" + strings.Join(attrs, ", ") + "}"
}

func (g *Graph) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s\n", g.Name)
	for _, in := range g.Inputs {
		fmt.Fprintf(&b, "  input %s: %s\n", in.Name, shapeString(in.Shape))
	}
	for _, param := range g.Initializers {
		fmt.Fprintf(&b, "  init %s: %s\n", param.Name, shapeString(param.Shape))
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		fmt.Fprintf(&b, "  node %s = %s(%s)%s: %s\n", n.Name, n.Op, strings.Join(n.Inputs, ", "), n.attributesString(), shapeString(n.Output.Shape))
	}
	for _, out := range g.Outputs {
		fmt.Fprintf(&b, "  output %s: %s\n", out.Name, shapeString(out.Shape))
	}
	return b.String()
}
