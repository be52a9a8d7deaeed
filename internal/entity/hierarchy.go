package entity

import (
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/physics"
	"go.uber.org/zap"
)

// AttachChild makes childID a child of parentID. Without an explicit local
// transform the child keeps its current world transform. Missing ids and
// attachments that would form a cycle are rejected.
func (r *Registry) AttachChild(parentID, childID string, local *geom.Transform) bool {
	parent, child := r.Get(parentID), r.Get(childID)
	if parent == nil || child == nil {
		r.log.Warn("attach: unknown entity", zap.String("parent", parentID), zap.String("child", childID))
		return false
	}
	if parentID == childID || r.isAncestor(childID, parent) {
		r.log.Error("attach: would create a cycle", zap.String("parent", parentID), zap.String("child", childID))
		return false
	}

	world := child.World
	r.unlink(child)
	child.parent = parent.ID
	parent.children = append(parent.children, child.ID)
	if local != nil {
		child.Local = local.Normalized()
	} else {
		child.Local = geom.WorldToLocal(world, parent.World)
	}
	r.updateSubtree(child, parent.World, true)
	return true
}

// Reparent moves id under newParentID, or detaches it when newParentID is empty.
// It rejects a new parent that is a descendant of id.
func (r *Registry) Reparent(id, newParentID string) bool {
	if newParentID == "" {
		return r.Detach(id)
	}
	return r.AttachChild(newParentID, id, nil)
}

// Detach makes id a root, preserving its world transform.
func (r *Registry) Detach(id string) bool {
	e := r.Get(id)
	if e == nil {
		return false
	}
	r.unlink(e)
	e.Local = e.World
	return true
}

func (r *Registry) unlink(e *Entity) {
	if e.parent == "" {
		return
	}
	if p := r.Get(e.parent); p != nil {
		p.children = removeString(p.children, e.ID)
	}
	e.parent = ""
}

// isAncestor walks up from e and reports whether id is on the path.
func (r *Registry) isAncestor(id string, e *Entity) bool {
	for cur := r.Get(e.parent); cur != nil; cur = r.Get(cur.parent) {
		if cur.ID == id {
			return true
		}
	}
	return false
}

// SetTransform replaces the local transform and recomputes the subtree.
// Bodies in the subtree are moved to match.
func (r *Registry) SetTransform(id string, local geom.Transform) bool {
	e := r.Get(id)
	if e == nil {
		return false
	}
	e.Local = local.Normalized()
	r.updateSubtree(e, r.parentWorld(e), true)
	return true
}

// UpdateWorldTransforms recomputes world transforms for the subtree at rootID, top-down.
func (r *Registry) UpdateWorldTransforms(rootID string) {
	if e := r.Get(rootID); e != nil {
		r.updateSubtree(e, r.parentWorld(e), false)
	}
}

// UpdateAllWorldTransforms recomputes every root's subtree.
func (r *Registry) UpdateAllWorldTransforms() {
	for _, e := range r.All() {
		if e.parent == "" {
			r.updateSubtree(e, nil, false)
		}
	}
}

func (r *Registry) parentWorld(e *Entity) *geom.Transform {
	if p := r.Get(e.parent); p != nil {
		return &p.World
	}
	return nil
}

func (r *Registry) updateSubtree(e *Entity, parent *geom.Transform, push bool) {
	if parent == nil {
		e.World = e.Local
	} else {
		e.World = geom.Combine(*parent, e.Local)
	}
	if push && e.Body != 0 && r.physics != nil {
		r.physics.SetPose(e.Body, physics.Pose{Position: e.World.Position(), Angle: e.World.Angle})
	}
	for _, cid := range e.children {
		if c := r.Get(cid); c != nil {
			r.updateSubtree(c, &e.World, push)
		}
	}
}

// SyncFromPhysics copies body poses into entity transforms. Bodied entities take
// the pose as their world transform (local is re-derived under a parent); the rest
// follow their parents. Inactive bodied entities keep their transform.
func (r *Registry) SyncFromPhysics() {
	if r.physics == nil {
		return
	}
	for _, e := range r.All() {
		if e.parent == "" {
			r.syncSubtree(e, nil)
		}
	}
}

func (r *Registry) syncSubtree(e *Entity, parent *geom.Transform) {
	synced := false
	if e.Body != 0 && e.Active {
		if pose, ok := r.physics.Pose(e.Body); ok {
			e.World.X, e.World.Y, e.World.Angle = pose.Position.X, pose.Position.Y, pose.Angle
			if parent == nil {
				e.Local = e.World
			} else {
				e.Local = geom.WorldToLocal(e.World, *parent)
			}
			synced = true
		}
	}
	if !synced {
		if parent == nil {
			e.World = e.Local
		} else {
			e.World = geom.Combine(*parent, e.Local)
		}
	}
	for _, cid := range e.children {
		if c := r.Get(cid); c != nil {
			r.syncSubtree(c, &e.World)
		}
	}
}

// Parent returns the parent entity, or nil.
func (r *Registry) Parent(id string) *Entity {
	e := r.Get(id)
	if e == nil {
		return nil
	}
	return r.Get(e.parent)
}

// Children returns direct children in attach order.
func (r *Registry) Children(id string) []*Entity {
	e := r.Get(id)
	if e == nil {
		return nil
	}
	out := make([]*Entity, 0, len(e.children))
	for _, cid := range e.children {
		if c := r.Get(cid); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns every nested child, depth-first, parents before children.
func (r *Registry) Descendants(id string) []*Entity {
	var out []*Entity
	var walk func(*Entity)
	walk = func(e *Entity) {
		for _, cid := range e.children {
			if c := r.Get(cid); c != nil {
				out = append(out, c)
				walk(c)
			}
		}
	}
	if e := r.Get(id); e != nil {
		walk(e)
	}
	return out
}

// Ancestors returns the parent chain, nearest first.
func (r *Registry) Ancestors(id string) []*Entity {
	e := r.Get(id)
	if e == nil {
		return nil
	}
	var out []*Entity
	for cur := r.Get(e.parent); cur != nil; cur = r.Get(cur.parent) {
		out = append(out, cur)
	}
	return out
}

// Root returns the top of id's hierarchy (id itself when it has no parent).
func (r *Registry) Root(id string) *Entity {
	e := r.Get(id)
	if e == nil {
		return nil
	}
	for p := r.Get(e.parent); p != nil; p = r.Get(p.parent) {
		e = p
	}
	return e
}
