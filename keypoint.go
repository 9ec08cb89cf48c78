package engine

// KeypointDayType narrows which days a keypoint's Day field matches
// against, beyond plain "every n days" (spec §4.8).
type KeypointDayType uint8

const (
	DayAll KeypointDayType = iota
	DayEven
	DayOdd
)

// KeypointStatus tracks a keypoint's progress through one visit.
type KeypointStatus uint8

const (
	KeypointPending KeypointStatus = iota
	KeypointStarted
	KeypointCompleted
)

// KeypointCommandType is the action a keypoint command performs once the
// NPC has arrived at the keypoint's position.
type KeypointCommandType uint8

const (
	CmdMove KeypointCommandType = iota
	CmdFace
	CmdTeleport
	CmdWait
	CmdVisibility
	CmdPassthrough
)

// KeypointCommand is one step of a keypoint's command list, each using
// only the fields its Type needs (spec §4.8).
type KeypointCommand struct {
	Type           KeypointCommandType
	X, Y           float64
	Map            string
	Direction      Direction
	DurationMillis int64
	Value          bool
}

// Keypoint is one scheduled stop in an NPC's day: a map, a position, and
// optionally a list of commands run once the NPC arrives there (spec
// §4.8). Day/TimestampSeconds select which real-world days and times of
// day the keypoint is eligible to run.
type Keypoint struct {
	Map string
	// Day is "every n days"; -1 means unset (a sequential follow-up
	// keypoint inherits its predecessor's Day/DayType once matched).
	Day     int
	DayType KeypointDayType
	// TimestampSeconds is time-of-day in seconds (0-43199, a 12-hour
	// cycle), -1 until assigned by the schedule file.
	TimestampSeconds int64
	// StartTime is the game-time (seconds) this visit actually began.
	StartTime int64

	Position         Vec2
	ActivationScript string
	ReachScript      string
	Pose             string
	Direction        Direction
	// Sequential chains to the next keypoint in the schedule once this
	// one completes, inheriting its Day/DayType, rather than waiting for
	// its own Day/TimestampSeconds to come around again.
	Sequential bool

	Status        KeypointStatus
	CompletionDay int

	Commands     []KeypointCommand
	CommandIndex int
}

// Reset restores a keypoint to its pre-visit state so it can be matched
// again the next time its Day/TimestampSeconds condition is met.
func (k *Keypoint) Reset() {
	k.StartTime = -1
	k.Status = KeypointPending
	k.CompletionDay = 0
	k.CommandIndex = 0
}

// Hour, Minute, and Second split TimestampSeconds into a 12-hour clock
// face, matching the schedule file's h:m:s time format.
func (k *Keypoint) Hour() int   { return int(k.TimestampSeconds/3600) % 12 }
func (k *Keypoint) Minute() int { return int(k.TimestampSeconds/60) % 60 }
func (k *Keypoint) Second() int { return int(k.TimestampSeconds % 60) }
