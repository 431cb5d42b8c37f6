package model

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type TrackName string

const (
	TrackStudent TrackName = "student"
	TrackTeacher TrackName = "teacher"
	TrackGeneral TrackName = "general"
)

func (t TrackName) Valid() bool {
	switch t {
	case TrackStudent, TrackTeacher, TrackGeneral:
		return true
	}
	return false
}
