package chat

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound signals a missing personality or chat row.
	ErrNotFound = errors.New("chat: record not found")
	// ErrCorruptRecord signals a stored JSON column that no longer decodes.
	ErrCorruptRecord = errors.New("chat: corrupt stored record")
)

// Repo is the gorm-backed implementation of the personality and chat stores.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// GetPersonality fetches and decodes one personality row.
func (r *Repo) GetPersonality(ctx context.Context, id uint64) (*PersonalityRecord, error) {
	var p Personality
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "personality %d", id)
		}
		return nil, errors.Wrapf(err, "get personality %d", id)
	}
	return decodePersonality(&p)
}

// ListPersonalities returns the whole catalog.
func (r *Repo) ListPersonalities(ctx context.Context) ([]PersonalityRecord, error) {
	var rows []Personality
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list personalities")
	}
	out := make([]PersonalityRecord, 0, len(rows))
	for i := range rows {
		rec, err := decodePersonality(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// SavePersonality upserts a personality. When ImagePath is empty an existing
// row keeps its current image, matching the administrative tooling contract.
func (r *Repo) SavePersonality(ctx context.Context, rec *PersonalityRecord) error {
	promptJSON, err := json.Marshal(rec.SystemPrompt)
	if err != nil {
		return errors.Wrapf(err, "encode system prompt for personality %d", rec.ID)
	}

	if rec.ImagePath == "" {
		res := r.db.WithContext(ctx).Model(&Personality{}).
			Where("id = ?", rec.ID).
			Updates(map[string]any{
				"name":          rec.Name,
				"system_prompt": string(promptJSON),
				"intro_message": rec.IntroMessage,
			})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "update personality %d", rec.ID)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		// fall through: row does not exist yet
	}

	row := Personality{
		ID:           rec.ID,
		Name:         rec.Name,
		SystemPrompt: string(promptJSON),
		IntroMessage: rec.IntroMessage,
		ImagePath:    rec.ImagePath,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "system_prompt", "intro_message", "image_path", "updated_at",
		}),
	}).Create(&row).Error
	return errors.Wrapf(err, "save personality %d", rec.ID)
}

// GetChat returns the decoded message log for (user, personality), or
// ErrNotFound when the user never chatted with that personality.
func (r *Repo) GetChat(ctx context.Context, userID, personalityID uint64) ([]Message, error) {
	var row Chat
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND personality_id = ?", userID, personalityID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "chat user=%d personality=%d", userID, personalityID)
		}
		return nil, errors.Wrapf(err, "get chat user=%d personality=%d", userID, personalityID)
	}

	var msgs []Message
	if err := json.Unmarshal([]byte(row.Messages), &msgs); err != nil {
		return nil, errors.Wrapf(ErrCorruptRecord, "chat user=%d personality=%d: %v", userID, personalityID, err)
	}
	return msgs, nil
}

// SaveChat replaces the whole message log for (user, personality).
func (r *Repo) SaveChat(ctx context.Context, userID, personalityID uint64, messages []Message) error {
	body, err := json.Marshal(messages)
	if err != nil {
		return errors.Wrapf(err, "encode chat user=%d personality=%d", userID, personalityID)
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "personality_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"messages", "updated_at"}),
	}).Create(&Chat{
		UserID:        userID,
		PersonalityID: personalityID,
		Messages:      string(body),
	}).Error
	return errors.Wrapf(err, "save chat user=%d personality=%d", userID, personalityID)
}

// ListChats returns (personality id, personality name) for every chat row the
// user has.
func (r *Repo) ListChats(ctx context.Context, userID uint64) ([]ChatListEntry, error) {
	var entries []ChatListEntry
	err := r.db.WithContext(ctx).
		Table("chats").
		Select("chats.personality_id AS personality_id, personalities.name AS personality_name").
		Joins("JOIN personalities ON personalities.id = chats.personality_id").
		Where("chats.user_id = ?", userID).
		Order("chats.personality_id").
		Scan(&entries).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list chats user=%d", userID)
	}
	return entries, nil
}

func decodePersonality(p *Personality) (*PersonalityRecord, error) {
	var prompts []string
	if err := json.Unmarshal([]byte(p.SystemPrompt), &prompts); err != nil {
		return nil, errors.Wrapf(ErrCorruptRecord, "personality %d system prompt: %v", p.ID, err)
	}
	return &PersonalityRecord{
		ID:           p.ID,
		Name:         p.Name,
		SystemPrompt: prompts,
		IntroMessage: p.IntroMessage,
		ImagePath:    p.ImagePath,
	}, nil
}
