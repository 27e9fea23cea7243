package models

type User struct {
	BaseModel
	Username string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	IsAdmin  bool   `gorm:"not null;default:false" json:"is_admin"`
	// SelectedSubreddit is the subreddit name the user currently browses.
	SelectedSubreddit string `gorm:"size:128;index" json:"selected_subreddit"`
}

type Subreddit struct {
	BaseModel
	Name string `gorm:"size:128;not null;uniqueIndex" json:"name"`
}

type Moderator struct {
	UserID      uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	SubredditID uint `gorm:"primaryKey;autoIncrement:false" json:"subreddit_id"`

	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Subreddit Subreddit `gorm:"foreignKey:SubredditID;constraint:OnDelete:CASCADE" json:"-"`
}
