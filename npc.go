package engine

// npcDayLengthSeconds is the length of one in-game day: a 12-hour cycle,
// matching Keypoint.TimestampSeconds's 0-43199 range.
const npcDayLengthSeconds = 43200

func npcDayNumber(totalSeconds int64) int   { return int(totalSeconds / npcDayLengthSeconds) }
func npcTimeOfDay(totalSeconds int64) int64 { return totalSeconds % npcDayLengthSeconds }

// NPCWorld is the slice of game state an NPC's schedule needs: the
// currently loaded map, the simulation clock, creating its map object
// when it arrives on a map, and making the player passable so a
// simulated catch-up move doesn't get stuck walking into them.
type NPCWorld interface {
	Map() *Map
	Clock() *Clock
	CreateObject(name, sprite string, pos Vec2) *MapObject
	PlayerPassthrough() bool
	SetPlayerPassthrough(bool)
}

// NPCScheduleConfig supplies the wall-clock-to-game-time conversion an
// NPC's schedule uses to simulate movement and waits it missed while off
// the player's current map (spec §4.8).
type NPCScheduleConfig struct {
	// TimeMultiplier scales real elapsed seconds into game seconds.
	TimeMultiplier float64
	// FrameTimeMillis is the duration of one simulated logic tick.
	FrameTimeMillis float64
}

// NPC is a non-playable character driven by a day schedule of Keypoints:
// a sequence of map/position/command stops gated by day and time-of-day
// (spec §4.8). Off the player's current map, an NPC's schedule still
// advances, its position and command completion projected rather than
// actually simulated frame by frame.
type NPC struct {
	Name        string
	DisplayName string
	Map         string
	Position    Vec2
	Active      bool

	object *MapObject
	sprite string

	world  NPCWorld
	config NPCScheduleConfig

	lastKeypoint    *Keypoint
	positionMap     string
	currentSchedule string
	schedules       map[string][]Keypoint
	scriptCommand   Command

	expectedCompletion int64
	expectedPosition   Vec2
	movingToKeypoint   bool

	visible     bool
	passthrough bool
	direction   Direction
}

// NewNPC creates an inactive-until-scheduled NPC with an empty set of
// schedules; use LoadNPC to populate one from a schedule file.
func NewNPC(world NPCWorld, config NPCScheduleConfig, name, displayName, sprite string) *NPC {
	return &NPC{
		Name: name, DisplayName: displayName, sprite: sprite,
		Position: Vec2{-1, -1}, Active: true, visible: true,
		world: world, config: config,
		schedules: make(map[string][]Keypoint),
	}
}

// Object returns the NPC's map object, or nil while off the current map.
func (n *NPC) Object() *MapObject { return n.object }

// IsActive reports whether the NPC's schedule is advancing.
func (n *NPC) IsActive() bool { return n.Active }

// SetActive starts or freezes the NPC's schedule; a deactivated NPC on
// the current map just stands facing its last direction.
func (n *NPC) SetActive(active bool) { n.Active = active }

// HasSchedule reports whether a schedule with the given name exists.
func (n *NPC) HasSchedule(name string) bool {
	_, ok := n.schedules[name]
	return ok
}

// GetSchedule returns the name of the currently active schedule.
func (n *NPC) GetSchedule() string { return n.currentSchedule }

// SetSchedule switches to a different schedule, resetting every
// keypoint in it so the new schedule starts from scratch.
func (n *NPC) SetSchedule(name string) {
	if !n.HasSchedule(name) {
		return
	}
	for i := range n.schedules[n.currentSchedule] {
		n.schedules[n.currentSchedule][i].Reset()
	}
	n.lastKeypoint = nil
	n.expectedCompletion = -1
	n.movingToKeypoint = false
	n.scriptCommand = nil
	n.currentSchedule = name
}

// GetKeypoint returns a pointer into schedule's keypoint slice at index,
// or nil if out of range.
func (n *NPC) GetKeypoint(schedule string, index int) *Keypoint {
	kps, ok := n.schedules[schedule]
	if !ok || index < 0 || index >= len(kps) {
		return nil
	}
	return &kps[index]
}

// KeypointDay returns the day condition of the currently tracked
// keypoint, or -1 if none has run yet.
func (n *NPC) KeypointDay() int {
	if n.lastKeypoint == nil {
		return -1
	}
	return n.lastKeypoint.Day
}

// KeypointTime returns the game time (seconds) the current keypoint's
// visit started, or -1 if none has run yet.
func (n *NPC) KeypointTime() int64 {
	if n.lastKeypoint == nil {
		return -1
	}
	return n.lastKeypoint.StartTime
}

// Update advances the NPC's schedule by one logic tick (spec §4.8).
func (n *NPC) Update() {
	m := n.world.Map()
	sameMap := n.Map == m.Filename
	if !sameMap {
		n.deleteObject(false)
	}
	if !n.Active {
		if sameMap && n.object != nil {
			n.object.UpdateState(n.object.FaceState)
		}
		return
	}

	clock := n.world.Clock()
	totalSeconds := clock.Seconds()
	day := npcDayNumber(totalSeconds)
	timeNow := npcTimeOfDay(totalSeconds)

	if sameMap && n.executePendingCommand(timeNow) {
		return
	}

	index, best := n.findBestKeypoint(day, timeNow)
	if best == nil {
		n.deleteObject(true)
		return
	}
	best = n.advanceKeypoint(best, index, day)

	n.Map = best.Map
	sameMap = n.Map == m.Filename
	if n.Position.X > -1 && n.positionMap != n.Map {
		n.Position = Vec2{-1, -1}
	}
	if n.Position.X < 0 {
		n.positionMap = n.Map
		n.Position = best.Position
	}

	if sameMap {
		n.expectedCompletion = -1
		if n.object == nil {
			if obj := m.GetObjectByName(n.Name); obj != nil {
				n.object = obj
			} else {
				n.object = n.world.CreateObject(n.Name, n.sprite, n.Position)
			}
			n.object.Type = "npc"
			if n.direction != DirNone {
				n.object.Facing = n.direction
			}
		}
		n.object.Visible = n.visible
		n.object.Passthrough = n.passthrough
		n.setKeypoint(best, true)
		if n.moveToKeypoint(timeNow) {
			return
		}
		if n.lastKeypoint.Status == KeypointCompleted {
			return
		}
		timePassed := (timeNow - n.lastKeypoint.StartTime) / int64(n.config.TimeMultiplier)
		if timePassed > 1 {
			n.simulateCommands(timeNow, timePassed)
		} else {
			n.processCommand()
		}
		return
	}

	// The keypoint is on another map: wait out or project completion
	// rather than stepping real frames (spec §4.8).
	if timeNow < n.expectedCompletion {
		return
	} else if n.expectedCompletion > 0 {
		if n.lastKeypoint.Status == KeypointStarted {
			n.Position = n.expectedPosition
			n.lastKeypoint.CommandIndex++
		} else if n.movingToKeypoint {
			n.positionMap = n.Map
			n.Position = n.lastKeypoint.Position
			n.movingToKeypoint = false
		}
	}
	n.setKeypoint(best, false)
	if n.lastKeypoint.Status == KeypointPending {
		if n.moveToOffmapKeypoint(timeNow) {
			return
		}
	} else if n.lastKeypoint.Status == KeypointCompleted {
		return
	}
	n.processOffmapCommand(timeNow)
}

// setKeypoint records kp as the keypoint in progress. On the current
// map, it also faces/poses/activates the object unless a FACE command
// in kp's own command list is going to handle facing instead.
func (n *NPC) setKeypoint(kp *Keypoint, sameMap bool) {
	n.lastKeypoint = kp
	if n.object == nil || !sameMap {
		return
	}
	if kp.Direction != DirNone {
		hasFaceCommand := false
		for _, cmd := range kp.Commands {
			if cmd.Type == CmdFace {
				hasFaceCommand = true
				break
			}
		}
		if !hasFaceCommand {
			n.direction = kp.Direction
			n.object.Face(n.direction)
		}
	}
	n.object.TriggerScript = ObjectScript{Source: kp.ActivationScript}
	if n.object.PoseName != kp.Pose {
		n.object.SetPose(kp.Pose, "", DirNone)
	}
}

// processCommand advances last_keypoint's on-map command list by
// starting the next command (or completing the keypoint once exhausted).
func (n *NPC) processCommand() {
	if n.object == nil {
		return
	}
	n.scriptCommand = nil
	kp := n.lastKeypoint
	if kp.CommandIndex >= len(kp.Commands) {
		n.completeKeypoint()
		return
	}
	cmd := kp.Commands[kp.CommandIndex]
	switch cmd.Type {
	case CmdMove:
		n.scriptCommand = NewMoveObjectToCommand(n.world.Map(), n.object, n.world.Clock(),
			Vec2{X: cmd.X, Y: cmd.Y}, CheckTile, true)
	case CmdFace:
		n.direction = cmd.Direction
		n.object.Face(n.direction)
	case CmdTeleport:
		n.Map = cmd.Map
		n.positionMap = n.Map
		n.Position = Vec2{X: cmd.X, Y: cmd.Y}
		n.deleteObject(true)
		n.completeKeypoint()
	case CmdWait:
		n.scriptCommand = NewWaitCommand(n.world.Clock(), cmd.DurationMillis)
	case CmdVisibility:
		n.visible = cmd.Value
		n.object.Visible = n.visible
	case CmdPassthrough:
		n.passthrough = cmd.Value
		n.object.Passthrough = n.passthrough
	}
}

// processOffmapCommand is process_command's equivalent for a keypoint
// that isn't on the player's current map: rather than running a real
// Command, it projects an expected completion time/position.
func (n *NPC) processOffmapCommand(timeNow int64) {
	kp := n.lastKeypoint
	if kp.CommandIndex >= len(kp.Commands) {
		n.completeKeypoint()
		n.positionMap = n.Map
		n.Position = n.expectedPosition
		return
	}
	n.expectedPosition = n.Position
	n.expectedCompletion = timeNow
	cmd := kp.Commands[kp.CommandIndex]
	switch cmd.Type {
	case CmdMove:
		n.projectOffmapMove(Vec2{X: cmd.X, Y: cmd.Y}, timeNow)
	case CmdFace:
		n.direction = cmd.Direction
	case CmdTeleport:
		n.Map = cmd.Map
		n.expectedPosition = Vec2{X: cmd.X, Y: cmd.Y}
		n.positionMap = n.Map
		n.Position = n.expectedPosition
		n.completeKeypoint()
	case CmdWait:
		n.expectedCompletion = timeNow + cmd.DurationMillis/1000
	case CmdVisibility:
		n.visible = cmd.Value
	case CmdPassthrough:
		n.passthrough = cmd.Value
	}
}

// projectOffmapMove estimates how long a Move_Object_To toward dest
// would take: Chebyshev distance, padded 25% for diagonal/retry slack,
// scaled by one frame's duration and the schedule's time multiplier
// (spec §4.8).
func (n *NPC) projectOffmapMove(dest Vec2, timeNow int64) {
	n.expectedPosition = dest
	distance := absf(dest.X-n.Position.X)
	if dy := absf(dest.Y - n.Position.Y); dy > distance {
		distance = dy
	}
	distance *= 1.25
	delay := int64(n.config.TimeMultiplier * distance * n.config.FrameTimeMillis / 1000.0)
	n.expectedCompletion = timeNow + delay
}

// executePendingCommand drives the in-flight on-map script command, if
// any, advancing to the next keypoint command once it completes.
// Reports whether a command is still (or was) in flight this tick.
func (n *NPC) executePendingCommand(timeNow int64) bool {
	if n.scriptCommand == nil {
		return false
	}
	if n.scriptCommand.IsComplete() {
		if n.lastKeypoint.Status != KeypointPending {
			n.lastKeypoint.CommandIndex++
			n.processCommand()
		} else {
			// Was moving to the keypoint's start position.
			n.scriptCommand = nil
		}
	} else {
		n.scriptCommand.Execute()
	}
	if n.object != nil {
		n.Position = n.object.RealPosition()
	}
	return true
}

// findBestKeypoint scans the active schedule for the keypoint with the
// latest timestamp that's both day-eligible and already due today.
func (n *NPC) findBestKeypoint(day int, timeNow int64) (int, *Keypoint) {
	schedule := n.schedules[n.currentSchedule]
	bestIndex := 0
	var best *Keypoint
	for i := range schedule {
		kp := &schedule[i]
		if kp.Day == -1 {
			continue
		}
		dayMatch := day%kp.Day == 0
		if kp.DayType == DayEven && day&1 != 0 {
			dayMatch = false
		}
		if kp.DayType == DayOdd && day&1 == 0 {
			dayMatch = false
		}
		if dayMatch && kp.TimestampSeconds <= timeNow {
			if best == nil || kp.TimestampSeconds > best.TimestampSeconds {
				best = kp
				bestIndex = i
			}
		}
	}
	return bestIndex, best
}

// advanceKeypoint follows completed sequential keypoints forward until
// it lands on one still pending today (or one not yet completed at
// all), carrying the triggering keypoint's day condition along the
// chain so each link only needs its own position/commands.
func (n *NPC) advanceKeypoint(kp *Keypoint, index int, day int) *Keypoint {
	schedule := n.schedules[n.currentSchedule]
	priorDay := kp.Day
	priorDayType := kp.DayType
	for kp.Status == KeypointCompleted {
		if kp.CompletionDay != day {
			kp.Status = KeypointPending
		} else if kp.Sequential && index+1 < len(schedule) {
			index++
			kp = &schedule[index]
			kp.Day = priorDay
			kp.DayType = priorDayType
		} else {
			break
		}
	}
	return kp
}

// deleteObject removes the NPC's map object (from the map too, unless
// fromMap is false) and cancels any in-flight command.
func (n *NPC) deleteObject(fromMap bool) {
	if fromMap && n.object != nil {
		n.world.Map().DeleteObject(n.object)
	}
	n.object = nil
	n.scriptCommand = nil
}

// completeKeypoint marks last_keypoint done for today and clears the
// off-map completion projection.
func (n *NPC) completeKeypoint() {
	kp := n.lastKeypoint
	kp.Status = KeypointCompleted
	kp.CompletionDay = npcDayNumber(n.world.Clock().Seconds())
	kp.CommandIndex = 0
	n.expectedCompletion = -1
}

// moveToKeypoint starts (or catches up on) the walk to last_keypoint's
// position if the NPC's object isn't already there. If enough game time
// has passed since the keypoint became active, the walk is fast-forward
// simulated rather than played out in real ticks, so an NPC who was out
// of view doesn't visibly teleport the instant the player looks back.
func (n *NPC) moveToKeypoint(timeNow int64) bool {
	kp := n.lastKeypoint
	if kp.Status != KeypointPending {
		return false
	}
	if kp.StartTime < 0 {
		kp.StartTime = timeNow
	}
	if kp.TimestampSeconds < 0 {
		kp.TimestampSeconds = timeNow
	}
	objPos := n.object.RealPosition()
	dx := absf(objPos.X - kp.Position.X)
	dy := absf(objPos.Y - kp.Position.Y)
	if dx >= 8.0 || dy >= 8.0 {
		cmd := NewMoveObjectToCommand(n.world.Map(), n.object, n.world.Clock(),
			kp.Position, CheckTile, true)
		n.scriptCommand = cmd

		timePassed := (timeNow - kp.TimestampSeconds) / int64(n.config.TimeMultiplier)
		if timePassed > 1 {
			oldPassthrough := n.world.PlayerPassthrough()
			n.world.SetPlayerPassthrough(true)
			simulated := int64(0)
			limit := timePassed * 1000
			for simulated <= limit {
				if cmd.IsComplete() {
					n.scriptCommand = nil
					break
				}
				cmd.Execute()
				n.positionMap = n.Map
				n.Position = n.object.RealPosition()
				simulated += int64(n.config.FrameTimeMillis)
			}
			n.world.SetPlayerPassthrough(oldPassthrough)
		}
		return true
	}
	n.positionMap = n.Map
	n.Position = kp.Position
	kp.Status = KeypointStarted
	kp.StartTime = timeNow
	n.object.TriggerScript = ObjectScript{Source: kp.ActivationScript}
	return false
}

// moveToOffmapKeypoint is moveToKeypoint's off-map equivalent: it
// projects a walk time instead of running one.
func (n *NPC) moveToOffmapKeypoint(timeNow int64) bool {
	kp := n.lastKeypoint
	if kp.TimestampSeconds < 0 {
		kp.TimestampSeconds = timeNow
	}
	dx := absf(n.Position.X - kp.Position.X)
	dy := absf(n.Position.Y - kp.Position.Y)
	if dx >= 8.0 || dy >= 8.0 {
		n.projectOffmapMove(kp.Position, timeNow)
		n.movingToKeypoint = true
		return true
	}
	n.expectedCompletion = -1
	n.expectedPosition = n.Position
	kp.Status = KeypointStarted
	kp.StartTime = timeNow
	return false
}

// simulateCommands fast-forwards keypoint commands that would have run
// during a span of game time the NPC's object wasn't being stepped
// (e.g. while its map was frozen relative to the player's).
func (n *NPC) simulateCommands(timeNow, timePassed int64) {
	oldPassthrough := n.world.PlayerPassthrough()
	n.world.SetPlayerPassthrough(true)
	n.lastKeypoint.Status = KeypointStarted

	simulated := int64(0)
	limit := timePassed * 1000
	n.processCommand()
	for n.scriptCommand != nil && simulated <= limit {
		if n.scriptCommand.IsComplete() {
			n.lastKeypoint.CommandIndex++
			n.processCommand()
		} else {
			n.scriptCommand.Execute()
		}
		if n.object != nil {
			n.positionMap = n.Map
			n.Position = n.object.RealPosition()
		}
		simulated += int64(n.config.FrameTimeMillis)
	}
	n.world.SetPlayerPassthrough(oldPassthrough)
}
