// Package entity implements the entity registry: pooled entity records, the tag
// index and the parent/child transform hierarchy.
package entity

import (
	"fmt"
	"slices"
	"sort"

	"github.com/hassoncs/clover-sub000/internal/conditional"
	"github.com/hassoncs/clover-sub000/internal/core/ecs"
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/core/tags"
	"github.com/hassoncs/clover-sub000/internal/physics"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"go.uber.org/zap"
)

// Registry owns every entity of one simulation instance. It is not safe for
// concurrent use; the frame loop is its only caller.
type Registry struct {
	log     *zap.Logger
	physics physics.World
	tagReg  *tags.Registry

	world     *ecs.World
	records   *ecs.Store[Entity]
	byID      map[string]ecs.EntityID
	byTag     map[tags.ID]map[ecs.EntityID]*Entity
	byBody    map[physics.BodyHandle]*Entity
	templates map[string]*scene.Template
	seq       uint64
}

// NewRegistry creates an empty registry. phys may be nil for hosts without physics;
// tagReg is the instance's tag interning registry.
func NewRegistry(phys physics.World, tagReg *tags.Registry, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if tagReg == nil {
		tagReg = tags.NewRegistry()
	}
	r := &Registry{
		log:       log,
		physics:   phys,
		tagReg:    tagReg,
		world:     ecs.NewWorld(),
		records:   ecs.NewStore[Entity](),
		byID:      make(map[string]ecs.EntityID, 256),
		byTag:     make(map[tags.ID]map[ecs.EntityID]*Entity),
		byBody:    make(map[physics.BodyHandle]*Entity),
		templates: make(map[string]*scene.Template),
	}
	r.world.Registry().Register(r.records)
	return r
}

// Tags returns the instance's tag registry.
func (r *Registry) Tags() *tags.Registry { return r.tagReg }

// RegisterTemplate makes a template available to Create. The map key wins over t.ID.
func (r *Registry) RegisterTemplate(id string, t *scene.Template) {
	r.templates[id] = t
}

func (r *Registry) Template(id string) (*scene.Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// Len returns the number of live entities.
func (r *Registry) Len() int { return r.records.Len() }

// Get returns the live entity with the given id, or nil.
func (r *Registry) Get(id string) *Entity {
	h, ok := r.byID[id]
	if !ok {
		return nil
	}
	e, _ := r.records.Get(h)
	return e
}

// Resolve returns the entity for a handle, or nil when the handle is stale.
func (r *Registry) Resolve(h ecs.EntityID) *Entity {
	if !r.world.Alive(h) {
		return nil
	}
	e, _ := r.records.Get(h)
	return e
}

// Alive reports whether h still names a live entity.
func (r *Registry) Alive(h ecs.EntityID) bool { return r.world.Alive(h) }

// EntityByBody maps a physics body back to its entity.
func (r *Registry) EntityByBody(b physics.BodyHandle) *Entity {
	if b == 0 {
		return nil
	}
	return r.byBody[b]
}

// All returns live entities in creation order.
func (r *Registry) All() []*Entity {
	out := make([]*Entity, 0, r.records.Len())
	r.records.Each(func(_ ecs.EntityID, e *Entity) {
		out = append(out, e)
	})
	return out
}

// EntitiesInBounds returns live entities inside box, in creation order. When the
// physics host answers box queries, entities with a body match by fixture
// overlap; the rest match by world position.
func (r *Registry) EntitiesInBounds(box geom.Bounds) []*Entity {
	q, canQuery := r.physics.(physics.AABBQuerier)
	var hit map[*Entity]bool
	if canQuery {
		bodies := q.QueryAABB(box)
		hit = make(map[*Entity]bool, len(bodies))
		for _, b := range bodies {
			if e := r.byBody[b]; e != nil {
				hit[e] = true
			}
		}
	}
	var out []*Entity
	r.records.Each(func(_ ecs.EntityID, e *Entity) {
		if hit[e] || ((!canQuery || e.Body == 0) && box.Contains(e.Position())) {
			out = append(out, e)
		}
	})
	return out
}

// Active returns live, active entities in creation order.
func (r *Registry) Active() []*Entity {
	out := make([]*Entity, 0, r.records.Len())
	r.records.Each(func(_ ecs.EntityID, e *Entity) {
		if e.Active {
			out = append(out, e)
		}
	})
	return out
}

// VisibleSorted returns visible entities ordered by layer, creation order within a layer.
func (r *Registry) VisibleSorted() []*Entity {
	var out []*Entity
	r.records.Each(func(_ ecs.EntityID, e *Entity) {
		if e.Visible {
			out = append(out, e)
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Layer < out[j].Layer })
	return out
}

// Create instantiates a definition: template merge, pooled id, tags, behaviors,
// conditional groups, physics body and declared children. It returns nil when the
// id is already taken.
func (r *Registry) Create(def scene.EntityDef) *Entity {
	return r.create(def, nil, nil, nil)
}

// Spawn creates an instance of template at a world position.
func (r *Registry) Spawn(template string, pos geom.Vec2) *Entity {
	t := geom.Identity
	t.X, t.Y = pos.X, pos.Y
	return r.create(scene.EntityDef{Name: template, Template: template, Transform: &t}, nil, nil, nil)
}

type resolved struct {
	scene.EntityDef
	slots map[string]scene.Slot
}

func (r *Registry) resolve(def scene.EntityDef) resolved {
	if def.Template == "" {
		return resolved{EntityDef: def}
	}
	t, ok := r.templates[def.Template]
	if !ok {
		r.log.Warn("template not found, using definition as-is",
			zap.String("entity", def.ID), zap.String("template", def.Template))
		return resolved{EntityDef: def}
	}
	out := def
	if out.Physics == nil {
		out.Physics = t.Physics
	}
	if out.Behaviors == nil {
		out.Behaviors = t.Behaviors
	}
	if out.ConditionalBehaviors == nil {
		out.ConditionalBehaviors = t.ConditionalBehaviors
	}
	if out.Layer == nil {
		out.Layer = t.Layer
	}
	out.Tags = unionTags(t.Tags, def.Tags)
	out.Children = append(append([]scene.ChildDef(nil), t.Children...), def.Children...)
	return resolved{EntityDef: out, slots: t.Slots}
}

func unionTags(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// create builds one entity. With a parent, def.Transform is local to it. chain
// holds the templates of the ancestors being instantiated; a template that
// appears again is skipped.
func (r *Registry) create(def scene.EntityDef, parent *Entity, layer *int, chain []string) *Entity {
	if def.Template != "" && slices.Contains(chain, def.Template) {
		r.log.Warn("template includes itself, child skipped",
			zap.String("entity", def.ID), zap.String("template", def.Template))
		return nil
	}
	if def.ID != "" {
		if _, taken := r.byID[def.ID]; taken {
			r.log.Warn("entity id already exists", zap.String("entity", def.ID))
			return nil
		}
	}
	res := r.resolve(def)

	h := r.world.CreateEntity()
	id := res.ID
	if id == "" {
		id = fmt.Sprintf("pooled_%d_%d", h.Index(), h.Generation())
	}

	local := geom.Identity
	if res.Transform != nil {
		local = res.Transform.Normalized()
	}
	r.seq++
	e := &Entity{
		ID:          id,
		Handle:      h,
		Name:        res.Name,
		Template:    res.Template,
		Local:       local,
		World:       local,
		Physics:     res.Physics,
		ActiveGroup: conditional.None,
		Visible:     res.Visible == nil || *res.Visible,
		Active:      res.Active == nil || *res.Active,
		tagReg:      r.tagReg,
		seq:         r.seq,
	}
	switch {
	case res.Layer != nil:
		e.Layer = *res.Layer
	case layer != nil:
		e.Layer = *layer
	}
	if parent != nil {
		e.parent = parent.ID
		e.World = geom.Combine(parent.World, local)
		parent.children = append(parent.children, id)
	}

	e.Behaviors = r.runtimeBehaviors(id, res.Behaviors)
	e.groupDefs = res.ConditionalBehaviors
	for _, g := range res.ConditionalBehaviors {
		e.Groups = append(e.Groups, &Group{
			When:      g.When,
			Priority:  g.Priority,
			Behaviors: r.runtimeBehaviors(id, g.Behaviors),
		})
	}

	r.records.Set(h, e)
	r.byID[id] = h
	for _, t := range res.Tags {
		r.indexTag(e, t)
	}
	// the initial group activates in the scheduler's next lifecycle pass
	r.recomputeGroup(e)

	if res.Physics != nil {
		r.createBody(e, res.Physics)
	}

	if res.Template != "" {
		chain = append(slices.Clip(chain), res.Template)
	}
	for _, child := range res.Children {
		r.createChild(e, child, res.slots, chain)
	}
	return e
}

func (r *Registry) runtimeBehaviors(entityID string, defs []scene.Behavior) []*RuntimeBehavior {
	out := make([]*RuntimeBehavior, 0, len(defs))
	for _, d := range defs {
		if !d.Known() {
			r.log.Warn("unknown behavior kind, skipped",
				zap.String("entity", entityID), zap.String("kind", string(d.Kind)))
			continue
		}
		out = append(out, newRuntimeBehavior(d))
	}
	return out
}

func (r *Registry) createChild(parent *Entity, c scene.ChildDef, slots map[string]scene.Slot, chain []string) {
	local := geom.Identity
	var layer *int
	if c.LocalTransform != nil {
		local = c.LocalTransform.Normalized()
	} else if c.Slot != "" {
		if s, ok := slots[c.Slot]; ok {
			local.X, local.Y = s.X, s.Y
			layer = s.Layer
		} else {
			r.log.Warn("child slot not found", zap.String("entity", parent.ID), zap.String("slot", c.Slot))
		}
	}
	id := c.ID
	if id == "" {
		id = parent.ID + "_" + c.Name
	}
	r.create(scene.EntityDef{
		ID:                   id,
		Name:                 c.Name,
		Template:             c.Template,
		Transform:            &local,
		Physics:              c.Physics,
		Behaviors:            c.Behaviors,
		ConditionalBehaviors: c.ConditionalBehaviors,
		Tags:                 c.Tags,
		Layer:                c.Layer,
		Visible:              c.Visible,
		Children:             c.Children,
	}, parent, layer, chain)
}

func (r *Registry) createBody(e *Entity, p *scene.Physics) {
	if r.physics == nil {
		return
	}
	bodyType := physics.BodyType(p.BodyType)
	switch bodyType {
	case "":
		bodyType = physics.Dynamic
	case physics.Static, physics.Dynamic, physics.Kinematic:
	default:
		r.log.Warn("unknown body type, physics skipped",
			zap.String("entity", e.ID), zap.String("bodyType", p.BodyType))
		return
	}
	e.Body = r.physics.CreateBody(physics.BodyDef{
		Type:           bodyType,
		Position:       e.World.Position(),
		Angle:          e.World.Angle,
		LinearDamping:  p.LinearDamping,
		AngularDamping: p.AngularDamping,
		FixedRotation:  p.FixedRotation,
		Bullet:         p.Bullet,
		EntityID:       e.ID,
	})
	r.byBody[e.Body] = e

	var shape physics.Shape
	switch physics.ShapeKind(p.Shape) {
	case physics.Circle:
		shape = physics.Shape{Kind: physics.Circle, Radius: p.Radius}
	case physics.Box:
		shape = physics.Shape{Kind: physics.Box, HalfWidth: p.Width / 2, HalfHeight: p.Height / 2}
	case physics.Polygon:
		shape = physics.Shape{Kind: physics.Polygon, Vertices: p.Vertices}
	default:
		r.log.Warn("unknown physics shape, fixture skipped",
			zap.String("entity", e.ID), zap.String("shape", p.Shape))
	}
	if shape.Kind != "" {
		e.Collider = r.physics.AddFixture(e.Body, physics.FixtureDef{
			Shape:       shape,
			Density:     p.Density,
			Friction:    p.Friction,
			Restitution: p.Restitution,
			IsSensor:    p.IsSensor,
		})
	}
	if p.InitialVelocity != nil {
		r.physics.SetVelocity(e.Body, *p.InitialVelocity)
	}
	if p.InitialAngularVelocity != nil {
		r.physics.SetAngularVelocity(e.Body, *p.InitialAngularVelocity)
	}
}

// Destroy removes an entity. With recursive, descendants are destroyed bottom-up;
// otherwise they are detached and keep their world transform. Unknown ids return false.
func (r *Registry) Destroy(id string, recursive bool) bool {
	e := r.Get(id)
	if e == nil {
		return false
	}
	if recursive {
		desc := r.Descendants(id)
		for i := len(desc) - 1; i >= 0; i-- {
			r.destroyOne(desc[i])
		}
	} else {
		for _, cid := range append([]string(nil), e.children...) {
			r.Detach(cid)
		}
	}
	if p := r.Get(e.parent); p != nil {
		p.children = removeString(p.children, id)
	}
	r.destroyOne(e)
	return true
}

func (r *Registry) destroyOne(e *Entity) {
	if e.Body != 0 {
		if r.physics != nil {
			r.physics.DestroyBody(e.Body)
		}
		delete(r.byBody, e.Body)
	}
	// the record keeps its tags so collisions captured this frame still match
	e.tagBits.Each(func(tid tags.ID) {
		if bucket := r.byTag[tid]; bucket != nil {
			delete(bucket, e.Handle)
		}
	})
	for _, b := range e.Behaviors {
		clear(b.State)
	}
	for _, g := range e.Groups {
		for _, b := range g.Behaviors {
			clear(b.State)
		}
	}
	delete(r.byID, e.ID)
	r.world.DestroyEntity(e.Handle)
	e.destroyed = true
	e.hasPend = false
}

// Clear destroys every entity. Templates stay registered.
func (r *Registry) Clear() {
	for _, e := range r.All() {
		if e.Body != 0 && r.physics != nil {
			r.physics.DestroyBody(e.Body)
		}
		e.destroyed = true
	}
	r.world.Reset()
	clear(r.byID)
	clear(r.byTag)
	clear(r.byBody)
}

// AddTag adds a tag. It returns false when the entity is unknown or already has it.
// A change of selected conditional group is recorded as a pending transition.
func (r *Registry) AddTag(id, tag string) bool {
	e := r.Get(id)
	if e == nil || !r.indexTag(e, tag) {
		return false
	}
	r.recomputeGroup(e)
	return true
}

// RemoveTag removes a tag. It returns false when the entity is unknown or lacks it.
func (r *Registry) RemoveTag(id, tag string) bool {
	e := r.Get(id)
	if e == nil {
		return false
	}
	tid, ok := r.tagReg.Lookup(tag)
	if !ok || !e.tagBits.Remove(tid) {
		return false
	}
	e.tags = removeString(e.tags, tag)
	if bucket := r.byTag[tid]; bucket != nil {
		delete(bucket, e.Handle)
	}
	r.recomputeGroup(e)
	return true
}

// HasTag reports whether the entity carries tag.
func (r *Registry) HasTag(id, tag string) bool {
	e := r.Get(id)
	return e != nil && e.HasTag(tag)
}

// EntitiesByTag returns the entities carrying tag, in creation order.
func (r *Registry) EntitiesByTag(tag string) []*Entity {
	tid, ok := r.tagReg.Lookup(tag)
	if !ok {
		return nil
	}
	bucket := r.byTag[tid]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*Entity, 0, len(bucket))
	for _, e := range bucket {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// CountByTag is EntitiesByTag without the allocation.
func (r *Registry) CountByTag(tag string) int {
	tid, ok := r.tagReg.Lookup(tag)
	if !ok {
		return 0
	}
	return len(r.byTag[tid])
}

func (r *Registry) indexTag(e *Entity, tag string) bool {
	tid := r.tagReg.Intern(tag)
	if !e.tagBits.Add(tid) {
		return false
	}
	e.tags = append(e.tags, tag)
	bucket := r.byTag[tid]
	if bucket == nil {
		bucket = make(map[ecs.EntityID]*Entity)
		r.byTag[tid] = bucket
	}
	bucket[e.Handle] = e
	return true
}

func (r *Registry) recomputeGroup(e *Entity) {
	if len(e.groupDefs) == 0 {
		return
	}
	e.recordTransition(conditional.Select(e.groupDefs, e.HasTag))
}

// SetVisible sets visibility, optionally for the whole subtree.
func (r *Registry) SetVisible(id string, visible, recursive bool) bool {
	return r.apply(id, recursive, func(e *Entity) { e.Visible = visible })
}

// SetActive sets the active flag, optionally for the whole subtree. Inactive
// entities are skipped by the scheduler and physics sync.
func (r *Registry) SetActive(id string, active, recursive bool) bool {
	return r.apply(id, recursive, func(e *Entity) { e.Active = active })
}

func (r *Registry) apply(id string, recursive bool, fn func(*Entity)) bool {
	e := r.Get(id)
	if e == nil {
		return false
	}
	fn(e)
	if recursive {
		for _, d := range r.Descendants(id) {
			fn(d)
		}
	}
	return true
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
