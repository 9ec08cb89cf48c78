package engine

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// npcXML mirrors the NPC schedule file format: an npc element naming a
// sprite and carrying one or more named schedules, each a list of
// keypoints (spec §4.8, §6 Data files).
type npcXML struct {
	XMLName   xml.Name      `xml:"npc"`
	Name      string        `xml:"name,attr"`
	Display   string        `xml:"display,attr"`
	Sprite    string        `xml:"sprite,attr"`
	Schedules []scheduleXML `xml:"schedule"`
}

type scheduleXML struct {
	Name       string        `xml:"name,attr"`
	Activation string        `xml:"activation,attr"`
	Day        string        `xml:"day,attr"`
	Keypoints  []keypointXML `xml:"keypoint"`
}

type keypointXML struct {
	Map        string       `xml:"map,attr"`
	X          float64      `xml:"x,attr"`
	Y          float64      `xml:"y,attr"`
	Sequential string       `xml:"sequential,attr"`
	Pose       string       `xml:"pose,attr"`
	Direction  string       `xml:"direction,attr"`
	Activation string       `xml:"activation,attr"`
	Reach      string       `xml:"reach,attr"`
	Time       *timeXML     `xml:"time"`
	Commands   *commandsXML `xml:"commands"`
}

type timeXML struct {
	Day       string `xml:"day,attr"`
	Timestamp string `xml:"timestamp,attr"`
}

type commandsXML struct {
	Commands []commandXML `xml:"command"`
}

type commandXML struct {
	Type     string `xml:"type,attr"`
	X        string `xml:"x,attr"`
	Y        string `xml:"y,attr"`
	Map      string `xml:"map,attr"`
	Dir      string `xml:"dir,attr"`
	Duration string `xml:"duration,attr"`
	Value    string `xml:"value,attr"`
}

// LoadNPC parses an NPC schedule file's XML content and builds a fully
// populated NPC bound to world (spec §4.8's keypoint day/time grammar).
func LoadNPC(data []byte, world NPCWorld, config NPCScheduleConfig) (*NPC, error) {
	var doc npcXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("npc schedule: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("npc schedule: missing name attribute")
	}
	display := doc.Display
	if display == "" {
		display = doc.Name
	}
	if len(doc.Schedules) == 0 {
		return nil, fmt.Errorf("npc schedule: must have at least one schedule")
	}

	npc := NewNPC(world, config, doc.Name, display, doc.Sprite)
	for _, sx := range doc.Schedules {
		name := sx.Name
		if name == "" {
			name = "default"
		}
		keypoints, err := buildSchedule(sx)
		if err != nil {
			return nil, err
		}
		npc.schedules[name] = keypoints
		if npc.currentSchedule == "" {
			npc.currentSchedule = name
		}
	}
	return npc, nil
}

func buildSchedule(sx scheduleXML) ([]Keypoint, error) {
	keypoints := make([]Keypoint, 0, len(sx.Keypoints))
	prevSequential := false
	for _, kx := range sx.Keypoints {
		if kx.Activation == "" {
			kx.Activation = sx.Activation
		}
		kp, err := buildKeypoint(kx, sx.Day, prevSequential)
		if err != nil {
			return nil, err
		}
		prevSequential = kp.Sequential
		keypoints = append(keypoints, kp)
	}
	return keypoints, nil
}

func buildKeypoint(kx keypointXML, scheduleDay string, prevSequential bool) (Keypoint, error) {
	kp := Keypoint{
		Map:              kx.Map,
		Position:         Vec2{X: kx.X, Y: kx.Y},
		Sequential:       strings.EqualFold(kx.Sequential, "true"),
		Pose:             kx.Pose,
		ActivationScript: kx.Activation,
		ReachScript:      kx.Reach,
		Day:              -1,
		TimestampSeconds: -1,
		StartTime:        -1,
	}
	if kx.Direction != "" {
		dir, _ := ParseDirection(kx.Direction)
		kp.Direction = dir
	}

	if kx.Time != nil {
		dayVal := kx.Time.Day
		if dayVal == "" {
			dayVal = scheduleDay
		}
		switch strings.ToUpper(dayVal) {
		case "":
			kp.Day = 1
		case "EVEN":
			kp.DayType = DayEven
			kp.Day = 1
		case "ODD":
			kp.DayType = DayOdd
			kp.Day = 1
		default:
			n, err := strconv.Atoi(dayVal)
			if err != nil {
				return kp, fmt.Errorf("npc schedule: invalid day %q", dayVal)
			}
			kp.Day = n
		}
		ts, err := parseScheduleTime(kx.Time.Timestamp)
		if err != nil {
			return kp, err
		}
		kp.TimestampSeconds = ts
	} else if !prevSequential {
		return kp, fmt.Errorf("npc schedule: keypoint missing <time> and not sequential")
	}

	if kx.Commands != nil {
		for _, cx := range kx.Commands.Commands {
			cmd, err := buildKeypointCommand(cx)
			if err != nil {
				return kp, err
			}
			kp.Commands = append(kp.Commands, cmd)
		}
	}
	return kp, nil
}

func buildKeypointCommand(cx commandXML) (KeypointCommand, error) {
	var cmd KeypointCommand
	switch strings.ToUpper(cx.Type) {
	case "MOVE":
		cmd.Type = CmdMove
		x, err := strconv.ParseFloat(cx.X, 64)
		if err != nil {
			return cmd, fmt.Errorf("npc schedule: move command: %w", err)
		}
		y, err := strconv.ParseFloat(cx.Y, 64)
		if err != nil {
			return cmd, fmt.Errorf("npc schedule: move command: %w", err)
		}
		cmd.X, cmd.Y = x, y
	case "FACE":
		cmd.Type = CmdFace
		dir, _ := ParseDirection(cx.Dir)
		cmd.Direction = dir
	case "TELEPORT":
		cmd.Type = CmdTeleport
		x, err := strconv.ParseFloat(cx.X, 64)
		if err != nil {
			return cmd, fmt.Errorf("npc schedule: teleport command: %w", err)
		}
		y, err := strconv.ParseFloat(cx.Y, 64)
		if err != nil {
			return cmd, fmt.Errorf("npc schedule: teleport command: %w", err)
		}
		cmd.X, cmd.Y, cmd.Map = x, y, cx.Map
	case "WAIT":
		seconds, err := parseScheduleTime(cx.Duration)
		if err != nil {
			return cmd, fmt.Errorf("npc schedule: wait command: %w", err)
		}
		cmd.Type = CmdWait
		cmd.DurationMillis = seconds * 1000
	case "VISIBILITY":
		cmd.Type = CmdVisibility
		cmd.Value = strings.EqualFold(cx.Value, "true")
	case "PASSTHROUGH":
		cmd.Type = CmdPassthrough
		cmd.Value = strings.EqualFold(cx.Value, "true")
	default:
		return cmd, fmt.Errorf("npc schedule: unknown command type %q", cx.Type)
	}
	return cmd, nil
}

// parseScheduleTime accepts either a bare seconds count or an "h:m:s"
// clock string (matching the original file format's overloaded
// timestamp/duration grammar).
func parseScheduleTime(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("missing time value")
	}
	if !strings.Contains(value, ":") {
		return strconv.ParseInt(value, 10, 64)
	}
	parts := strings.Split(value, ":")
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	minute, second := 0, 0
	if len(parts) > 1 {
		if minute, err = strconv.Atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", value, err)
		}
	}
	if len(parts) > 2 {
		if second, err = strconv.Atoi(parts[2]); err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", value, err)
		}
	}
	if hour > 11 || minute > 59 || second > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return int64(hour*3600 + minute*60 + second), nil
}
