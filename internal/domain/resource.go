package domain

import "fmt"

// Resource is a bookable unit. The variants are GPU and Room.
type Resource interface {
	// ConflictsWith reports whether both values denote the same physical unit.
	ConflictsWith(other Resource) bool
	// Describe renders the resource for humans.
	Describe() string
	isResource()
}

// GPU is one device on a compute server. Model is descriptive only.
type GPU struct {
	Server       string
	DeviceNumber int
	Model        string
}

func (g GPU) ConflictsWith(other Resource) bool {
	o, ok := other.(GPU)
	if !ok {
		return false
	}
	return g.Server == o.Server && g.DeviceNumber == o.DeviceNumber
}

func (g GPU) Describe() string {
	return fmt.Sprintf("%s / %s / GPU:%d", g.Server, g.Model, g.DeviceNumber)
}

func (GPU) isResource() {}

// Room is a bookable room.
type Room struct {
	Name string
}

func (r Room) ConflictsWith(other Resource) bool {
	o, ok := other.(Room)
	if !ok {
		return false
	}
	return r.Name == o.Name
}

func (r Room) Describe() string { return r.Name }

func (Room) isResource() {}
