package engine

// SetMask sets a mask node for this node. The mask node's alpha channel
// determines which parts of this node are visible. The mask node is NOT
// part of the scene tree — its transforms are relative to the masked node.
func (n *Canvas) SetMask(maskNode *Canvas) {
	n.mask = maskNode
}

// ClearMask removes the mask from this node.
func (n *Canvas) ClearMask() {
	n.mask = nil
}

// GetMask returns the current mask node, or nil if no mask is set.
func (n *Canvas) GetMask() *Canvas {
	return n.mask
}
