package domain

const (
	// MaxImagesPerSend 單次發送的圖片上限
	MaxImagesPerSend = 5
	// MaxImageBytes 單張圖片大小上限 10 MB
	MaxImageBytes = 10 << 20
)

// DraftStatus optimistic message lifecycle status
type DraftStatus string

const (
	// StatusSending 已在 UI 顯示，等待伺服器確認
	StatusSending DraftStatus = "sending"
	// StatusSent 伺服器已回覆 durable id
	StatusSent DraftStatus = "sent"
	// StatusFailed HTTP 失敗，不自動重試
	StatusFailed DraftStatus = "failed"
)

// Attachment 待上傳圖片
type Attachment struct {
	Name    string
	Size    int64
	MIME    string
	Preview string // 本地預覽位址
	Data    []byte
}

// RejectReason per-file validation reject reason
type RejectReason string

const (
	// RejectNotImage 非圖片 MIME
	RejectNotImage RejectReason = "not_an_image"
	// RejectTooLarge 超過單檔大小上限
	RejectTooLarge RejectReason = "file_too_large"
	// RejectTooMany 超過單次發送張數上限
	RejectTooMany RejectReason = "too_many_images"
)

// RejectedFile 單一檔案被拒絕，整批不中止
type RejectedFile struct {
	Name   string
	Reason RejectReason
}

// OptimisticMessage 樂觀訊息，送出當下即發布給 UI
type OptimisticMessage struct {
	TempID    string
	ChatID    string
	Text      string
	Images    []string // previews
	Status    DraftStatus
	Timestamp int64
}

// MessageConfirmed 以 temp id 關聯 durable id
type MessageConfirmed struct {
	TempID    string
	MessageID string
	Status    DraftStatus
}

// MessageFailed 送出失敗，該泡泡標記 failed
type MessageFailed struct {
	TempID string
	Status DraftStatus
	Reason string
}

// SendMessageResult HTTP 發送回應
type SendMessageResult struct {
	MessageID string `json:"message_id"`
}

// Participant chat 成員
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Chat HTTP 拉回的聊天室
type Chat struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	Archived     bool          `json:"archived"`
	Blocked      bool          `json:"blocked"`
	UpdatedAt    int64         `json:"updated_at"`
}
