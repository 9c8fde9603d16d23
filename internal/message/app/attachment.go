package app

import (
	"strings"

	"portfolio_social_service/internal/message/domain"
	"portfolio_social_service/pkg/eventbus"
)

// ValidateAttachments 逐檔檢查，單檔被拒不中止整批
// 回傳通過驗證的附件，拒絕原因透過 TopicAttachmentRejected 發布
func ValidateAttachments(bus *eventbus.Bus, existing int, files []domain.Attachment) []domain.Attachment {
	accepted := make([]domain.Attachment, 0, len(files))
	for _, f := range files {
		if !strings.HasPrefix(f.MIME, "image/") {
			eventbus.Publish(bus, domain.TopicAttachmentRejected, domain.RejectedFile{Name: f.Name, Reason: domain.RejectNotImage})
			continue
		}
		if f.Size > domain.MaxImageBytes {
			eventbus.Publish(bus, domain.TopicAttachmentRejected, domain.RejectedFile{Name: f.Name, Reason: domain.RejectTooLarge})
			continue
		}
		if existing+len(accepted) >= domain.MaxImagesPerSend {
			eventbus.Publish(bus, domain.TopicAttachmentRejected, domain.RejectedFile{Name: f.Name, Reason: domain.RejectTooMany})
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted
}
