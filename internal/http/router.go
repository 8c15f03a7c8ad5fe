package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"court-manager/backend/internal/config"
	"court-manager/backend/internal/domain/availability"
	"court-manager/backend/internal/domain/block"
	"court-manager/backend/internal/domain/booking"
	"court-manager/backend/internal/domain/court"
	"court-manager/backend/internal/domain/notifications"
	"court-manager/backend/internal/domain/quota"
	"court-manager/backend/internal/domain/schedule"
	"court-manager/backend/internal/domain/user"
	"court-manager/backend/internal/middleware"
)

type RouterDeps struct {
	Cfg              config.Config
	AuthClient       *auth.Client
	UserRepo         *user.Repo
	CourtSvc         *court.Service
	ScheduleSvc      *schedule.Service
	BlockSvc         *block.Service
	BookingSvc       *booking.Service
	AvailabilitySvc  *availability.Resolver
	QuotaTracker     *quota.Tracker
	NotificationsSvc *notifications.Service
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(d.Cfg.AllowedOrigins))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, 200, map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
	})

	// Protected routes
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.WithAuth(d.AuthClient))

		pr.Get("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())

			// First authenticated request bootstraps the profile.
			if err := d.UserRepo.UpsertMinimal(r.Context(), au.UID, au.Email, au.DisplayName); err != nil {
				log.Warn().Err(err).Str("uid", au.UID).Msg("profile bootstrap failed")
			}
			p, err := d.UserRepo.Get(r.Context(), au.UID)
			if err != nil {
				Fail(w, 500, "failed to load profile")
				return
			}
			WriteJSON(w, 200, map[string]any{
				"profile": p,
				"isAdmin": middleware.IsAdmin(au.Claims),
			})
		})

		pr.Patch("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())

			var in user.UpdateProfileInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				Fail(w, 400, "invalid json")
				return
			}
			if err := d.UserRepo.Update(r.Context(), au.UID, in); err != nil {
				Fail(w, 500, "failed to update profile")
				return
			}
			WriteJSON(w, 200, map[string]any{"success": true})
		})

		// ===== Court routes =====
		pr.Get("/v1/courts", func(w http.ResponseWriter, r *http.Request) {
			out, err := d.CourtSvc.List(r.Context())
			if err != nil {
				status, msg := mapCourtError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Get("/v1/courts/{courtId}", func(w http.ResponseWriter, r *http.Request) {
			courtId := chi.URLParam(r, "courtId")
			out, err := d.CourtSvc.Get(r.Context(), courtId)
			if err != nil {
				status, msg := mapCourtError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Get("/v1/courts/{courtId}/templates", func(w http.ResponseWriter, r *http.Request) {
			out, err := d.ScheduleSvc.ListForCourt(r.Context(), chi.URLParam(r, "courtId"))
			if err != nil {
				status, msg := mapScheduleError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Get("/v1/courts/{courtId}/blocks", func(w http.ResponseWriter, r *http.Request) {
			courtId := chi.URLParam(r, "courtId")
			date := r.URL.Query().Get("date")
			if date == "" {
				Fail(w, 400, "missing date")
				return
			}
			day, err := time.ParseInLocation("2006-01-02", date, d.Cfg.Location())
			if err != nil {
				Fail(w, 400, "invalid date")
				return
			}

			out, err := d.BlockSvc.ListForCourtDay(r.Context(), courtId, day)
			if err != nil {
				status, msg := mapBlockError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		// ===== Availability routes =====
		pr.Get("/v1/courts/{courtId}/availability", func(w http.ResponseWriter, r *http.Request) {
			courtId := chi.URLParam(r, "courtId")
			date := r.URL.Query().Get("date")
			if date == "" {
				Fail(w, 400, "missing date")
				return
			}

			out, err := d.AvailabilitySvc.DayGrid(r.Context(), courtId, date)
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Get("/v1/courts/{courtId}/availability/stream", func(w http.ResponseWriter, r *http.Request) {
			courtId := chi.URLParam(r, "courtId")
			date := r.URL.Query().Get("date")
			if date == "" {
				Fail(w, 400, "missing date")
				return
			}
			flusher, ok := w.(http.Flusher)
			if !ok {
				Fail(w, 500, "streaming unsupported")
				return
			}

			grids, stop, err := d.AvailabilitySvc.WatchDay(r.Context(), courtId, date)
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			defer stop()

			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(200)
			flusher.Flush()

			for {
				select {
				case <-r.Context().Done():
					return
				case grid, open := <-grids:
					if !open {
						return
					}
					payload, err := json.Marshal(grid)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "data: %s\n\n", payload)
					flusher.Flush()
				}
			}
		})

		// ===== Booking routes =====
		pr.Post("/v1/bookings", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())

			var in booking.CreateInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				Fail(w, 400, "invalid json")
				return
			}

			userName := au.DisplayName
			if userName == "" {
				userName = au.Email
			}
			out, err := d.BookingSvc.Create(r.Context(), au.UID, userName, in)
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 201, out)
		})

		pr.Get("/v1/bookings/{bookingId}", func(w http.ResponseWriter, r *http.Request) {
			out, err := d.BookingSvc.Get(r.Context(), chi.URLParam(r, "bookingId"))
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Get("/v1/bookings", func(w http.ResponseWriter, r *http.Request) {
			courtId := r.URL.Query().Get("courtId")
			date := r.URL.Query().Get("date")
			out, err := d.BookingSvc.ListForCourtDate(r.Context(), courtId, date)
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Get("/v1/bookings/mine", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			limit := 0
			if s := r.URL.Query().Get("limit"); s != "" {
				limit, _ = strconv.Atoi(s)
			}
			out, err := d.BookingSvc.ListMine(r.Context(), au.UID, limit)
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Post("/v1/bookings/{bookingId}/join", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			userName := au.DisplayName
			if userName == "" {
				userName = au.Email
			}
			out, err := d.BookingSvc.Join(r.Context(), au.UID, userName, chi.URLParam(r, "bookingId"))
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Post("/v1/bookings/{bookingId}/accept", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			out, err := d.BookingSvc.AcceptInvitation(r.Context(), au.UID, chi.URLParam(r, "bookingId"))
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Post("/v1/bookings/{bookingId}/leave", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			out, err := d.BookingSvc.Leave(r.Context(), au.UID, chi.URLParam(r, "bookingId"))
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Post("/v1/bookings/{bookingId}/cancel", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			out, err := d.BookingSvc.Cancel(r.Context(), au.UID, chi.URLParam(r, "bookingId"))
			if err != nil {
				status, msg := mapBookingError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		// ===== Quota =====
		pr.Get("/v1/quota", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			now := time.Now()
			count, err := d.QuotaTracker.GetCount(r.Context(), au.UID, now)
			if err != nil {
				Fail(w, 500, "failed to load quota")
				return
			}
			WriteJSON(w, 200, map[string]any{
				"week":      quota.WeekKey(now),
				"count":     count,
				"limit":     quota.WeeklyLimit,
				"remaining": quota.WeeklyLimit - count,
			})
		})

		// ===== Notifications =====
		pr.Get("/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			unreadOnly := r.URL.Query().Get("unreadOnly") == "true"
			limit := 0
			if s := r.URL.Query().Get("limit"); s != "" {
				limit, _ = strconv.Atoi(s)
			}

			out, err := d.NotificationsSvc.List(r.Context(), au.UID, unreadOnly, limit)
			if err != nil {
				Fail(w, 500, "failed to list notifications")
				return
			}
			WriteJSON(w, 200, out)
		})

		pr.Post("/v1/notifications/markRead", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())

			var in notifications.MarkReadInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				Fail(w, 400, "invalid json")
				return
			}
			n, err := d.NotificationsSvc.MarkRead(r.Context(), au.UID, in)
			if err != nil {
				Fail(w, 500, "failed to mark read")
				return
			}
			WriteJSON(w, 200, map[string]any{"updated": n})
		})

		pr.Delete("/v1/notifications/{notificationId}", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			if err := d.NotificationsSvc.Delete(r.Context(), au.UID, chi.URLParam(r, "notificationId")); err != nil {
				Fail(w, 500, "failed to delete notification")
				return
			}
			WriteJSON(w, 200, map[string]any{"success": true})
		})

		// ===== Admin routes =====
		pr.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireAdmin)

			ar.Post("/v1/courts", func(w http.ResponseWriter, r *http.Request) {
				au, _ := middleware.GetAuthUser(r.Context())

				var in court.CreateCourtInput
				if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
					Fail(w, 400, "invalid json")
					return
				}
				in.Trim()

				out, err := d.CourtSvc.Create(r.Context(), au.UID, in)
				if err != nil {
					status, msg := mapCourtError(err)
					Fail(w, status, msg)
					return
				}
				WriteJSON(w, 201, out)
			})

			ar.Post("/v1/courts/{courtId}/templates", func(w http.ResponseWriter, r *http.Request) {
				au, _ := middleware.GetAuthUser(r.Context())
				courtId := chi.URLParam(r, "courtId")

				var in schedule.CreateTemplateInput
				if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
					Fail(w, 400, "invalid json")
					return
				}
				in.Trim()

				out, err := d.ScheduleSvc.CreateTemplate(r.Context(), au.UID, courtId, in)
				if err != nil {
					status, msg := mapScheduleError(err)
					Fail(w, status, msg)
					return
				}
				WriteJSON(w, 201, out)
			})

			ar.Patch("/v1/courts/{courtId}/templates/{templateId}", func(w http.ResponseWriter, r *http.Request) {
				var in schedule.UpdateTemplateInput
				if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
					Fail(w, 400, "invalid json")
					return
				}
				in.Trim()

				out, err := d.ScheduleSvc.UpdateTemplate(r.Context(), chi.URLParam(r, "templateId"), in)
				if err != nil {
					status, msg := mapScheduleError(err)
					Fail(w, status, msg)
					return
				}
				WriteJSON(w, 200, out)
			})

			ar.Delete("/v1/courts/{courtId}/templates/{templateId}", func(w http.ResponseWriter, r *http.Request) {
				if err := d.ScheduleSvc.DeleteTemplate(r.Context(), chi.URLParam(r, "templateId")); err != nil {
					status, msg := mapScheduleError(err)
					Fail(w, status, msg)
					return
				}
				WriteJSON(w, 200, map[string]any{"success": true})
			})

			ar.Post("/v1/courts/{courtId}/blocks", func(w http.ResponseWriter, r *http.Request) {
				au, _ := middleware.GetAuthUser(r.Context())
				courtId := chi.URLParam(r, "courtId")

				var in block.CreateBlockInput
				if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
					Fail(w, 400, "invalid json")
					return
				}
				in.Trim()

				out, err := d.BlockSvc.Create(r.Context(), au.UID, courtId, in)
				if err != nil {
					status, msg := mapBlockError(err)
					Fail(w, status, msg)
					return
				}
				WriteJSON(w, 201, out)
			})

			ar.Delete("/v1/courts/{courtId}/blocks/{blockId}", func(w http.ResponseWriter, r *http.Request) {
				if err := d.BlockSvc.Delete(r.Context(), chi.URLParam(r, "blockId")); err != nil {
					status, msg := mapBlockError(err)
					Fail(w, status, msg)
					return
				}
				WriteJSON(w, 200, map[string]any{"success": true})
			})
		})
	})

	return r
}

func mapCourtError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case court.IsErrNotFound(err):
		return 404, err.Error()
	case court.IsErrBadRequest(err):
		return 400, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapScheduleError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case schedule.IsErrNotFound(err):
		return 404, err.Error()
	case schedule.IsErrBadRequest(err):
		return 400, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapBlockError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case block.IsErrNotFound(err):
		return 404, err.Error()
	case block.IsErrBadRequest(err):
		return 400, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapBookingError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case booking.IsErrValidation(err):
		return 400, err.Error()
	case booking.IsErrUnauthorized(err):
		return 403, err.Error()
	case booking.IsErrNotFound(err):
		return 404, err.Error()
	case booking.IsErrConflict(err):
		return 409, err.Error()
	case quota.IsErrExceeded(err):
		return 429, err.Error()
	case booking.IsErrStoreUnavailable(err):
		return 503, err.Error()
	case court.IsErrNotFound(err):
		return 404, err.Error()
	default:
		return 500, err.Error()
	}
}
