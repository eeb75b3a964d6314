package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lab-resource-manager/internal/application"
	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/logging"
	"github.com/example/lab-resource-manager/internal/persistence"
)

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errMissingActor   = errors.New("X-User-Email ヘッダーで利用者を指定してください。")
	errInvalidActor   = errors.New("X-User-Email ヘッダーのメールアドレスが不正です。")
	errInvalidOwner   = errors.New("owner に有効なメールアドレスを指定してください。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		conflict *application.ConflictError
		vErr     *application.ValidationError
		specErr  *domain.DeviceSpecError
	)
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定された予約が見つかりません。"})
	case errors.Is(err, application.ErrEmailAlreadyLinked):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "EMAIL_ALREADY_LINKED",
			Message:   "このメールアドレスは既に別のユーザーに紐付けられています。",
		})
	case errors.As(err, &conflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESOURCE_CONFLICT",
			Message:   conflict.Conflict.ResourceDescription + " は既に予約されています。",
			Conflict: &conflictDTO{
				Resource:           conflict.Conflict.ResourceDescription,
				ConflictingUsageID: conflict.Conflict.ConflictingUsageID.String(),
			},
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  localizeValidationErrors(vErr),
		})
	case errors.As(err, &specErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  map[string]string{"resources": specErr.Error()},
		})
	case errors.Is(err, persistence.ErrUnavailable):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Message: "カレンダーに接続できません。しばらくしてから再度お試しください。"})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Resolve(ctx, r.logger)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "利用者の指定が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "owner is required":
		return "予約者は必須です。"
	case "at least one resource is required":
		return "少なくとも 1 つのリソースを指定してください。"
	case "start is required":
		return "開始日時は必須です。"
	case "end is required":
		return "終了日時は必須です。"
	case "start must be before end":
		return "終了日時は開始日時より後である必要があります。"
	case "start must not be in the past":
		return "過去の日時は予約できません。"
	case "start and end must be given together":
		return "開始日時と終了日時は同時に指定してください。"
	case "email is required":
		return "メールアドレスは必須です。"
	case "email is invalid":
		return "メールアドレスの形式が不正です。"
	case "external user id is required":
		return "外部ユーザー ID は必須です。"
	default:
		return message
	}
}

type conflictDTO struct {
	Resource           string `json:"resource"`
	ConflictingUsageID string `json:"conflicting_usage_id"`
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflict  *conflictDTO      `json:"conflict,omitempty"`
}
