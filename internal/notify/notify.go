// notify — контракт внешнего сервиса уведомлений.
// Транспорт доставки (SMTP, очередь) живёт вне auth-сервиса; здесь только
// интерфейс-триггер и slog-реализация для local/dev окружений.
package notify

import (
	"context"
	"log/slog"

	"github.com/bookingapp/auth-service/internal/models"
	"github.com/bookingapp/auth-service/internal/pkg/redact"
)

// Notifier отправляет пользовательские уведомления.
// Ошибки доставки логируются вызывающей стороной и никогда не доходят
// до клиента операции Forget.
type Notifier interface {
	// SendPasswordResetMail инициирует письмо для сброса пароля.
	SendPasswordResetMail(ctx context.Context, user *models.User) error
}

// LogNotifier пишет факт уведомления в лог вместо реальной доставки.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier создаёт LogNotifier; nil-логгер заменяется slog.Default().
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.Default()
	}

	return &LogNotifier{log: l}
}

func (n *LogNotifier) SendPasswordResetMail(_ context.Context, user *models.User) error {
	n.log.Info("password_reset_mail",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	return nil
}

var _ Notifier = (*LogNotifier)(nil)
