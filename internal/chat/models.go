package chat

import "time"

// Personality is the durable catalog row for a chat persona. SystemPrompt
// holds a JSON array of prompt fragment strings, not a single prompt.
type Personality struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(64);not null" json:"name"`
	SystemPrompt string    `gorm:"type:text;not null" json:"-"`
	IntroMessage string    `gorm:"type:text;not null" json:"intro_message"`
	ImagePath    string    `gorm:"type:varchar(255)" json:"image_path"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

func (Personality) TableName() string { return "personalities" }

// Chat is one (user, personality) history row. Messages holds the full
// user/assistant log as a JSON array; saves replace the whole column.
type Chat struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID        uint64    `gorm:"not null;index:uniq_chat_user_personality,unique,priority:1" json:"-"`
	PersonalityID uint64    `gorm:"not null;index:uniq_chat_user_personality,unique,priority:2" json:"personality_id"`
	Messages      string    `gorm:"type:text;not null" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Chat) TableName() string { return "chats" }

// PersonalityRecord is the decoded form handed to the chat core.
type PersonalityRecord struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name"`
	SystemPrompt []string `json:"system_prompt,omitempty"`
	IntroMessage string   `json:"intro_message"`
	ImagePath    string   `json:"image_path"`
}

// ChatListEntry is one row of a user's chat list.
type ChatListEntry struct {
	PersonalityID   uint64 `json:"personality_id"`
	PersonalityName string `json:"personality_name"`
}
