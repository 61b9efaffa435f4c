package lowering

import (
	"slices"

	"graft/internal/graph"
	"graft/internal/snippet"
)

// Lower replaces every high-level node in g with an instantiated template:
// checked divisions through the fixed protocol, saturating adds through the
// anchored protocol, parity branches through the control-split protocol, and
// sum call sites through a vararg template unrolled to the argument count.
// Templates come from the shared cache, so repeated shapes build once.
func (c *Catalog) Lower(g *graph.Graph) error {
	// The node list is snapshotted up front; instantiation appends to the
	// arena and removes the replacee, never other pending sites.
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if n == nil {
			continue
		}
		var err error
		switch n.Kind {
		case graph.NodeDivChecked:
			err = c.lowerDivChecked(g, id)
		case graph.NodeSatAdd:
			err = c.lowerSatAdd(g, id)
		case graph.NodeParityBranch:
			err = c.lowerParity(g, id)
		case graph.NodeInvoke:
			if n.Name == SumCallee {
				err = c.lowerSum(g, id)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) lowerDivChecked(g *graph.Graph, id graph.NodeID) error {
	t, err := c.cache.GetOrBuild(snippet.NewKey(c.divChecked))
	if err != nil {
		return err
	}
	n := g.Node(id)
	args := snippet.Arguments{
		"x": snippet.ValueArg(n.In[0]),
		"y": snippet.ValueArg(n.In[1]),
	}
	_, err = snippet.Instantiate(t, args, snippet.FixedSite(g, id))
	return err
}

func (c *Catalog) lowerSatAdd(g *graph.Graph, id graph.NodeID) error {
	t, err := c.cache.GetOrBuild(snippet.NewKey(c.satAdd))
	if err != nil {
		return err
	}
	n := g.Node(id)
	args := snippet.Arguments{
		"x": snippet.ValueArg(n.In[0]),
		"y": snippet.ValueArg(n.In[1]),
	}
	// The template's diamond is loop-invariant-free, so anchoring right
	// after Start always dominates every use of the replacee.
	_, err = snippet.Instantiate(t, args, snippet.AnchoredSite(g, id, g.Start()))
	return err
}

func (c *Catalog) lowerParity(g *graph.Graph, id graph.NodeID) error {
	t, err := c.cache.GetOrBuild(snippet.NewKey(c.parity))
	if err != nil {
		return err
	}
	n := g.Node(id)
	args := snippet.Arguments{"x": snippet.ValueArg(n.In[0])}
	_, err = snippet.Instantiate(t, args, snippet.ControlSplitSite(g, id))
	return err
}

func (c *Catalog) lowerSum(g *graph.Graph, id graph.NodeID) error {
	n := g.Node(id)
	elems := slices.Clone(n.In)

	// The key carries the argument count as the vararg shape; element
	// values stay runtime-bound.
	key, err := c.SumKey(len(elems))
	if err != nil {
		return err
	}
	t, err := c.cache.GetOrBuild(key)
	if err != nil {
		return err
	}
	args := snippet.Arguments{"vals": snippet.VarargArg(elems...)}
	_, err = snippet.Instantiate(t, args, snippet.FixedSite(g, id))
	return err
}
