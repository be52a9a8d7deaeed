package behavior

import "github.com/hassoncs/clover-sub000/internal/scene"

func registerBuiltins(s *Scheduler) {
	s.Register(scene.KindControl, Handler{Execute: executeControl})
	s.Register(scene.KindTimer, Handler{Execute: executeTimer, OnActivate: activateTimer})
	s.Register(scene.KindMove, Handler{Execute: executeMove, OnDeactivate: stop})
	s.Register(scene.KindFollow, Handler{Execute: executeFollow, OnDeactivate: stop})
	s.Register(scene.KindBounce, Handler{Execute: executeBounce})
	s.Register(scene.KindOscillate, Handler{Execute: executeOscillate, OnDeactivate: stop})
	s.Register(scene.KindGravityZone, Handler{Execute: executeGravityZone})
	s.Register(scene.KindMagnetic, Handler{Execute: executeMagnetic})
	s.Register(scene.KindRotate, Handler{Execute: executeRotate, OnDeactivate: stopSpin})
	s.Register(scene.KindAnimate, Handler{Execute: executeAnimate, OnActivate: resetAnimation})
	s.Register(scene.KindSpawnOnEvent, Handler{Execute: executeSpawnOnEvent})
	s.Register(scene.KindDestroyOnCollision, Handler{Execute: executeDestroyOnCollision})
	s.Register(scene.KindScoreOnCollision, Handler{Execute: executeScoreOnCollision})
}
