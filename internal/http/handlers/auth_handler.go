package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"

	"github.com/topicrally/backend/internal/auth"
	"github.com/topicrally/backend/internal/config"
	"github.com/topicrally/backend/internal/http/dto"
	"github.com/topicrally/backend/internal/repositories"
	"github.com/topicrally/backend/internal/ton"
)

type AuthHandler struct {
	userRepo *repositories.UserRepo
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthHandler(userRepo *repositories.UserRepo, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, cfg: cfg, log: log}
}

// WalletAuth validates a TON Connect proof and issues a JWT. The raw account
// address doubles as the account identifier campaigns reference.
func (h *AuthHandler) WalletAuth(c *fiber.Ctx) error {
	var req dto.AuthWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Address == "" || req.PublicKey == "" || req.Proof.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, public_key and proof are required"})
	}

	workchain, addrHash, err := ton.ParseRawAddress(req.Address)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid address"})
	}

	if err := ton.VerifyProof(req.PublicKey, addrHash, workchain, req.Proof, h.cfg.ProofAllowedDomains); err != nil {
		h.log.Debug("wallet proof rejected", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	walletAddr := address.NewAddress(0, byte(workchain), addrHash)

	user, err := h.userRepo.UpsertByAccountID(c.Context(), req.Address, walletAddr.String(), req.PublicKey)
	if err != nil {
		h.log.Error("failed to upsert user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.ID, user.AccountID, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.AuthResponse{
		Token: token,
		User:  user,
	})
}
