package rules

const reachDistance = 1.0

func (e *Engine) checkWin() bool {
	w := e.win
	if w == nil {
		return false
	}
	switch w.Type {
	case "score":
		return float64(e.score) >= w.Score
	case "destroy_all", "collect_all":
		return w.Tag != "" && e.reg.CountByTag(w.Tag) == 0
	case "survive_time":
		return e.elapsed >= w.Time
	case "reach_entity":
		target := e.reg.Get(w.EntityID)
		if target == nil {
			return false
		}
		players := e.reg.EntitiesByTag("player")
		if len(players) == 0 {
			return false
		}
		return players[0].Position().Dist(target.Position()) < reachDistance
	}
	return false
}

func (e *Engine) checkLose() bool {
	l := e.lose
	if l == nil {
		return false
	}
	switch l.Type {
	case "entity_destroyed":
		if l.EntityID != "" {
			return e.reg.Get(l.EntityID) == nil
		}
		return l.Tag != "" && e.reg.CountByTag(l.Tag) == 0
	case "time_up":
		return e.elapsed >= l.Time
	case "score_below":
		return float64(e.score) < l.Score
	case "lives_zero":
		return e.lives <= 0
	case "entity_exits_screen":
		return e.exitedBounds(l.EntityID, l.Tag)
	}
	return false
}

// exitedBounds reports whether the entity, or any entity with tag ("player"
// when neither is set), lies outside the world bounds.
func (e *Engine) exitedBounds(id, tag string) bool {
	if e.bounds == nil {
		return false
	}
	if id != "" {
		t := e.reg.Get(id)
		return t != nil && !e.bounds.Contains(t.Position())
	}
	if tag == "" {
		tag = "player"
	}
	for _, t := range e.reg.EntitiesByTag(tag) {
		if !e.bounds.Contains(t.Position()) {
			return true
		}
	}
	return false
}
