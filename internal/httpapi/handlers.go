package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
	"github.com/cory-johannsen/pokedo/internal/observability"
)

const healthTimeout = 2 * time.Second

type namedCheck struct {
	name string
	fn   HealthFunc
}

type handler struct {
	svc    BattleAPI
	checks []namedCheck
}

func player(c *fiber.Ctx) string { return c.Get(observability.PlayerHeader) }

func (h *handler) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()
	deps := fiber.Map{}
	healthy := true
	for _, chk := range h.checks {
		if err := chk.fn(ctx); err != nil {
			deps[chk.name] = err.Error()
			healthy = false
			continue
		}
		deps[chk.name] = "ok"
	}
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "dependencies": deps})
	}
	return c.JSON(fiber.Map{"status": "ok", "dependencies": deps})
}

func (h *handler) challenge(c *fiber.Ctx) error {
	var req ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", battle.ErrValidation, err)
	}
	if err := check(req); err != nil {
		return err
	}
	format, err := battle.ParseFormat(req.Format)
	if err != nil {
		return err
	}
	sum, err := h.svc.Challenge(c.UserContext(), player(c), req.OpponentID, format)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sum)
}

func (h *handler) accept(c *fiber.Ctx) error {
	sum, err := h.svc.Accept(c.UserContext(), c.Params("id"), player(c))
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

func (h *handler) decline(c *fiber.Ctx) error {
	sum, err := h.svc.Decline(c.UserContext(), c.Params("id"), player(c))
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

func (h *handler) team(c *fiber.Ctx) error {
	sum, err := h.svc.SubmitTeam(c.UserContext(), c.Params("id"), player(c))
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

func (h *handler) action(c *fiber.Ctx) error {
	var req ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", battle.ErrValidation, err)
	}
	if err := check(req); err != nil {
		return err
	}
	act, err := req.Action()
	if err != nil {
		return err
	}
	res, err := h.svc.SubmitAction(c.UserContext(), c.Params("id"), player(c), req.Turn, act)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *handler) state(c *fiber.Ctx) error {
	view, err := h.svc.GetState(c.UserContext(), c.Params("id"), player(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *handler) history(c *fiber.Ctx) error {
	events, err := h.svc.GetHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"battle_id": c.Params("id"), "events": events})
}

func page(c *fiber.Ctx) (PageQuery, error) {
	var q PageQuery
	if err := c.QueryParser(&q); err != nil {
		return q, fmt.Errorf("%w: invalid query: %v", battle.ErrValidation, err)
	}
	return q, check(q)
}

func (h *handler) completed(c *fiber.Ctx) error {
	q, err := page(c)
	if err != nil {
		return err
	}
	out, err := h.svc.GetCompletedHistory(c.UserContext(), c.Params("id"), q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"player_id": c.Params("id"), "battles": out})
}

func (h *handler) open(c *fiber.Ctx) error {
	out, err := h.svc.ListOpen(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"player_id": c.Params("id"), "battles": out})
}

func (h *handler) leaderboard(c *fiber.Ctx) error {
	q, err := page(c)
	if err != nil {
		return err
	}
	out, err := h.svc.GetLeaderboard(c.UserContext(), rating.SortKey(q.Sort), q.Limit, q.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"standings": out})
}

func (h *handler) playerRating(c *fiber.Ctx) error {
	st, err := h.svc.GetPlayerRating(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(st)
}
