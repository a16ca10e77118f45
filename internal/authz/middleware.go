package authz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

// Rule decides whether the request may reach its handler.
type Rule func(r *http.Request, p *auth.Principal) (Decision, error)

// Require evaluates rule before the handler runs. Anonymous callers get 401,
// denials 403; rule errors go through the usual error translation.
func Require(log *logger.Logger, rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFrom(r.Context())
			if principal == nil {
				utils.WriteError(w, r, models.NewUnauthenticated("authentication required"))
				return
			}

			decision, err := rule(r, principal)
			if err != nil {
				if utils.StatusFor(err) == http.StatusInternalServerError {
					log.LogException(fmt.Sprintf("authorize %s %s", r.Method, r.URL.Path), err)
				}
				utils.WriteError(w, r, err)
				return
			}
			if !decision.Allowed {
				log.LogSecurity("DENIED", fmt.Sprintf("%s %s: %s", r.Method, r.URL.Path, decision.Reason))
				utils.WriteError(w, r, models.NewForbidden("ACCESS_DENIED", "%s", decision.Reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guard builds request rules on top of a Policy.
type Guard struct {
	Policy Policy
}

// OwnsEvent requires ownership of the event named by the URL parameter.
func (g *Guard) OwnsEvent(param string) Rule {
	return func(r *http.Request, p *auth.Principal) (Decision, error) {
		eventID, err := utils.PathInt64(r, param)
		if err != nil {
			return Decision{}, err
		}
		return g.Policy.IsOwner(r.Context(), p, eventID)
	}
}

func (g *Guard) ManagesEventTickets(param string) Rule {
	return func(r *http.Request, p *auth.Principal) (Decision, error) {
		eventID, err := utils.PathInt64(r, param)
		if err != nil {
			return Decision{}, err
		}
		return g.Policy.CanValidateEventTickets(r.Context(), p, eventID)
	}
}

// maxPeekBytes bounds how much of a creation body is buffered for the check.
const maxPeekBytes = 1 << 20

// CanCreateFromBody reads structureId from the JSON body and restores the body for the handler.
func (g *Guard) CanCreateFromBody() Rule {
	return func(r *http.Request, p *auth.Principal) (Decision, error) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes+1))
		if err != nil {
			return Decision{}, models.NewValidation("INVALID_BODY", "cannot read request body")
		}
		if len(body) > maxPeekBytes {
			return Decision{}, models.NewValidation("INVALID_BODY", "request body too large")
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var target struct {
			StructureID json.Number `json:"structureId"`
		}
		if err := json.Unmarshal(body, &target); err != nil {
			return Decision{}, models.NewValidation("INVALID_BODY", "invalid JSON body: %v", err)
		}
		structureID, err := strconv.ParseInt(target.StructureID.String(), 10, 64)
		if err != nil || structureID <= 0 {
			return Decision{}, models.NewValidation("VALIDATION_FAILED", "structureId is required").
				WithDetails(map[string]string{"structureId": "is required"})
		}
		return g.Policy.CanCreateInStructure(r.Context(), p, structureID)
	}
}
