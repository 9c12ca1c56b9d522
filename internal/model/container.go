package model

// Container is a running container that owns host processes
type Container struct {
	ID    string
	Name  string
	Image string
}
