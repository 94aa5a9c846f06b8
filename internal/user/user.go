package user

import "time"

// User is a guild member account. The name is the unique key used for every
// task association; tasks never reference users by anything else.
type User struct {
	Name           string    `json:"name"`
	Admin          bool      `json:"admin"`
	CurrentTasks   int       `json:"currentTasks"`
	CompletedTasks int       `json:"completedTasks"`
	Reputation     int       `json:"reputation"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
