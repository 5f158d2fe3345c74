package emecef

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cavebenin/emecef-pos/internal/application/dto"
	"github.com/cavebenin/emecef-pos/internal/domain"
	domainemecef "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
	pkgemecef "github.com/cavebenin/emecef-pos/pkg/emecef"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// Config paramètres du service e-MECeF.
type Config struct {
	DateFormat         domainemecef.DateFormat
	InfoRefresh        time.Duration
	SweepInterval      time.Duration
	ConfirmedRetention time.Duration
}

// Service orchestre la soumission e-MECeF : validation, normalisation,
// résolution des identifiants, soumission, puis confirmation ou annulation
// dans la fenêtre d'expiration. Seule une confirmation certifiée crée une
// vente et une facture locales.
type Service struct {
	posRepo    repository.PointOfSaleRepository
	resolver   *CredentialResolver
	client     FiscalClient
	cipher     TokenCipher
	identity   *IdentityCache
	pending    *PendingStore
	normalizer *domainemecef.Normalizer
	txRunner   SaleTxRunner
	cfg        Config
	log        *logger.Logger
}

// NewService construit le service. cipher peut être nil (jetons en clair).
func NewService(
	posRepo repository.PointOfSaleRepository,
	resolver *CredentialResolver,
	client FiscalClient,
	cipher TokenCipher,
	identity *IdentityCache,
	pending *PendingStore,
	txRunner SaleTxRunner,
	cfg Config,
	log *logger.Logger,
) *Service {
	if cfg.InfoRefresh <= 0 {
		cfg.InfoRefresh = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	pending.SetConfirmedRetention(cfg.ConfirmedRetention)
	return &Service{
		posRepo:    posRepo,
		resolver:   resolver,
		client:     client,
		cipher:     cipher,
		identity:   identity,
		pending:    pending,
		normalizer: domainemecef.NewNormalizer(cfg.DateFormat, pending.Now),
		txRunner:   txRunner,
		cfg:        cfg,
		log:        log,
	}
}

// ── Points de vente ──────────────────────────────────────────────────────────

// ListPointsOfSale liste les points de vente ; les jetons ne sont jamais exposés.
func (s *Service) ListPointsOfSale(ctx context.Context) ([]dto.PointOfSaleResponse, error) {
	list, err := s.posRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PointOfSaleResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPointOfSaleResponse(p))
	}
	return out, nil
}

// GetActivePointOfSale domain.ErrNotFound si aucun point de vente n'est actif.
func (s *Service) GetActivePointOfSale(ctx context.Context) (*dto.PointOfSaleResponse, error) {
	p, err := s.posRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	resp := toPointOfSaleResponse(p)
	return &resp, nil
}

// UpsertPointOfSale crée (ID vide) ou modifie un point de vente.
func (s *Service) UpsertPointOfSale(ctx context.Context, in dto.UpsertPointOfSaleRequest) (*dto.PointOfSaleResponse, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.BaseURL = strings.TrimSpace(in.BaseURL)

	var p *entity.PointOfSale
	if in.ID != "" {
		existing, err := s.posRepo.GetByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, domain.ErrNotFound
		}
		p = existing
	} else {
		p = &entity.PointOfSale{ID: uuid.New().String(), CreatedAt: s.pending.Now()}
	}
	p.UpdatedAt = s.pending.Now()

	if in.Name != "" {
		p.Name = in.Name
	}
	if in.BaseURL != "" {
		p.BaseURL = in.BaseURL
	}
	if p.Name == "" || p.BaseURL == "" {
		return nil, fmt.Errorf("nom et URL du point de vente requis: %w", domain.ErrInvalidInput)
	}
	if in.Token != nil {
		if err := s.storeToken(p, *in.Token); err != nil {
			return nil, err
		}
	}

	if err := s.posRepo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	if in.IsActive && !p.IsActive {
		if err := s.posRepo.SetActive(ctx, p.ID); err != nil {
			return nil, err
		}
		p.IsActive = true
	}
	s.identity.InvalidateAll()

	s.log.Info().Str("pos_id", p.ID).Str("name", p.Name).Bool("has_token", p.HasToken()).
		Bool("token_encrypted", p.TokenEncrypted).Msg("point de vente e-MECeF enregistré")
	resp := toPointOfSaleResponse(p)
	return &resp, nil
}

// storeToken normalise puis chiffre le jeton si une clé est configurée.
func (s *Service) storeToken(p *entity.PointOfSale, raw string) error {
	token := NormalizeToken(raw)
	if token == "" || s.cipher == nil {
		p.Token, p.TokenEncrypted = token, false
		return nil
	}
	enc, err := s.cipher.Encrypt(token)
	if err != nil {
		return fmt.Errorf("chiffrement du jeton: %w", err)
	}
	p.Token, p.TokenEncrypted = enc, true
	return nil
}

// DeletePointOfSale supprime un point de vente.
func (s *Service) DeletePointOfSale(ctx context.Context, id string) error {
	if err := s.posRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.identity.InvalidateAll()
	s.log.Info().Str("pos_id", id).Msg("point de vente e-MECeF supprimé")
	return nil
}

// SetActivePointOfSale active id et désactive les autres.
func (s *Service) SetActivePointOfSale(ctx context.Context, id string) error {
	if err := s.posRepo.SetActive(ctx, id); err != nil {
		return err
	}
	s.identity.InvalidateAll()
	s.log.Info().Str("pos_id", id).Msg("point de vente e-MECeF activé")
	return nil
}

// ── Appels e-MECeF ───────────────────────────────────────────────────────────

func (s *Service) credentials(ctx context.Context, posID string) (*domainemecef.Credentials, error) {
	creds, err := s.resolver.Resolve(ctx, posID)
	if err != nil {
		return nil, err
	}
	if err := requireCredentials(creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// Status sonde l'API et met à jour l'identité vendeur en cache.
func (s *Service) Status(ctx context.Context, posID string) (domainemecef.Response, error) {
	creds, err := s.credentials(ctx, posID)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Status(ctx, *creds)
	if err != nil {
		return nil, err
	}
	s.identity.Set(creds.CacheKey(), domainemecef.VendorInfoFrom(resp))
	return resp, nil
}

// vendorInfo identité vendeur en cache, rafraîchie si périmée. Un échec de
// /status n'empêche pas la soumission : nim et ifuVendeur sont alors omis.
func (s *Service) vendorInfo(ctx context.Context, creds domainemecef.Credentials) *domainemecef.VendorInfo {
	info, err := s.identity.RefreshIfExpired(ctx, creds.CacheKey(), s.cfg.InfoRefresh, func(ctx context.Context) (*domainemecef.VendorInfo, error) {
		resp, err := s.client.Status(ctx, creds)
		if err != nil {
			return nil, err
		}
		return domainemecef.VendorInfoFrom(resp), nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("pos_id", creds.PosID).Msg("identité vendeur indisponible")
	}
	return info
}

// SubmitInvoice valide, normalise et soumet une facture. En cas de succès,
// la soumission est mise en attente de confirmation jusqu'à son échéance.
func (s *Service) SubmitInvoice(ctx context.Context, posID string, raw any, userID string) (*dto.SubmitInvoiceResponse, error) {
	if err := domainemecef.Validate(raw); err != nil {
		return nil, err
	}
	creds, err := s.credentials(ctx, posID)
	if err != nil {
		return nil, err
	}

	info := s.vendorInfo(ctx, *creds)
	payload := s.normalizer.Normalize(raw.(map[string]any), info)

	resp, err := s.client.Submit(ctx, *creds, payload)
	if err != nil {
		domainemecef.WithPayload(err, payload)
		s.log.Error().Err(err).Str("pos_id", creds.PosID).Int64("total", payload.Total).Msg("soumission e-MECeF échouée")
		return nil, err
	}
	uid, err := domainemecef.ExtractUID(resp)
	if err != nil {
		tagErr(err, "submit")
		domainemecef.WithPayload(err, payload)
		s.log.Error().Err(err).Str("pos_id", creds.PosID).Msg("réponse de soumission e-MECeF inexploitable")
		return nil, err
	}

	sub := s.pending.Add(&PendingSubmission{
		UID:             uid,
		PosID:           creds.PosID,
		CreatedBy:       userID,
		Payload:         payload,
		InvoiceResponse: resp,
	})

	out := &dto.SubmitInvoiceResponse{
		UID:         uid,
		PosID:       creds.PosID,
		SubmittedAt: sub.SubmittedAt,
		ExpiresAt:   sub.ExpiresAt,
		ExpiresAtMs: sub.ExpiresAtMs(),
		Payload:     payload,
		Response:    resp,
	}
	if delta := payload.PaymentDelta(); delta != 0 {
		out.Warnings = append(out.Warnings, dto.Warning{
			Code:    domainemecef.WarningPaymentMismatch,
			Message: fmt.Sprintf("la somme des paiements diffère du total de %d FCFA", delta),
		})
		s.log.Warn().Str("uid", uid).Int64("delta", delta).Int64("total", payload.Total).Msg("écart paiements / total")
	}

	s.log.Info().Str("uid", uid).Str("pos_id", creds.PosID).Str("type", payload.Type).
		Int64("total", payload.Total).Time("expires_at", sub.ExpiresAt).Msg("facture soumise à l'e-MECeF")
	return out, nil
}

// ConfirmInvoice confirme uid ; voir FinalizeInvoice.
func (s *Service) ConfirmInvoice(ctx context.Context, uid, userID string) (*dto.FinalizeInvoiceResponse, error) {
	return s.FinalizeInvoice(ctx, uid, domainemecef.ActionConfirm, userID)
}

// CancelInvoice annule uid ; voir FinalizeInvoice.
func (s *Service) CancelInvoice(ctx context.Context, uid, userID string) (*dto.FinalizeInvoiceResponse, error) {
	return s.FinalizeInvoice(ctx, uid, domainemecef.ActionCancel, userID)
}

// FinalizeInvoice confirme ou annule une soumission en attente. L'échéance
// est contrôlée avant tout appel réseau. Une confirmation sans codeMECeFDGI
// est un échec ; une confirmation certifiée enregistre vente et facture dans
// une même transaction.
func (s *Service) FinalizeInvoice(ctx context.Context, uid string, action domainemecef.FinalizeAction, userID string) (*dto.FinalizeInvoiceResponse, error) {
	if action != domainemecef.ActionConfirm && action != domainemecef.ActionCancel {
		return nil, domainemecef.Newf(domainemecef.ErrInvalidAction, "action %q inconnue (confirm ou cancel)", action)
	}
	sub, err := s.pending.Begin(uid, action)
	if err != nil {
		return nil, err
	}

	if action == domainemecef.ActionCancel {
		return s.cancel(ctx, sub)
	}
	return s.confirm(ctx, sub, userID)
}

func (s *Service) cancel(ctx context.Context, sub PendingSubmission) (*dto.FinalizeInvoiceResponse, error) {
	creds, err := s.credentials(ctx, sub.PosID)
	if err != nil {
		s.pending.Release(sub.UID)
		return nil, err
	}
	resp, err := s.client.Finalize(ctx, *creds, sub.UID, domainemecef.ActionCancel)
	if err == nil {
		err = domainemecef.BusinessError(resp)
		tagErr(err, string(domainemecef.ActionCancel))
	}
	if err != nil {
		s.pending.Release(sub.UID)
		s.log.Error().Err(err).Str("uid", sub.UID).Msg("annulation e-MECeF échouée")
		return nil, err
	}
	s.pending.Discard(sub.UID)
	s.log.Info().Str("uid", sub.UID).Msg("facture e-MECeF annulée")
	return &dto.FinalizeInvoiceResponse{
		UID:      sub.UID,
		Action:   string(domainemecef.ActionCancel),
		State:    string(StateCancelled),
		Response: resp,
	}, nil
}

func (s *Service) confirm(ctx context.Context, sub PendingSubmission, userID string) (*dto.FinalizeInvoiceResponse, error) {
	resp, cert := sub.ConfirmResponse, sub.Certification
	if cert == nil {
		creds, err := s.credentials(ctx, sub.PosID)
		if err != nil {
			s.pending.Release(sub.UID)
			return nil, err
		}
		resp, err = s.client.Finalize(ctx, *creds, sub.UID, domainemecef.ActionConfirm)
		if err == nil {
			cert, err = domainemecef.ParseConfirmation(resp)
			tagErr(err, string(domainemecef.ActionConfirm))
		}
		if err != nil {
			s.pending.Release(sub.UID)
			s.log.Error().Err(err).Str("uid", sub.UID).Msg("confirmation e-MECeF échouée")
			return nil, err
		}
		s.pending.MarkConfirmed(sub.UID, resp, cert)
	} else {
		s.log.Info().Str("uid", sub.UID).Msg("confirmation déjà certifiée : nouvel essai d'enregistrement local")
	}

	if userID == "" {
		userID = sub.CreatedBy
	}
	invoice, err := s.persist(ctx, sub, resp, cert, userID)
	if err != nil {
		s.pending.Release(sub.UID)
		s.log.Error().Err(err).Str("uid", sub.UID).Str("code_mecef", cert.CodeMECeFDGI).
			Msg("facture certifiée mais non enregistrée : confirmer à nouveau pour réessayer")
		return nil, fmt.Errorf("enregistrement de la facture certifiée %s: %w", sub.UID, err)
	}
	s.pending.Discard(sub.UID)

	s.log.Info().Str("uid", sub.UID).Str("invoice_id", invoice.ID).Str("number", invoice.Number).
		Str("code_mecef", cert.CodeMECeFDGI).Msg("facture e-MECeF confirmée et enregistrée")
	return &dto.FinalizeInvoiceResponse{
		UID:           sub.UID,
		Action:        string(domainemecef.ActionConfirm),
		State:         string(StateConfirmed),
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.Number,
		CodeMECeFDGI:  cert.CodeMECeFDGI,
		QrCode:        cert.QrCode,
		DateTime:      cert.DateTime,
		Counters:      cert.Counters,
		Nim:           cert.Nim,
		Response:      resp,
	}, nil
}

// persist enregistre atomiquement vente, lignes, décrément de stock et
// facture immuable portant les champs e-MECeF.
func (s *Service) persist(ctx context.Context, sub PendingSubmission, resp domainemecef.Response, cert *domainemecef.Certification, userID string) (*entity.Invoice, error) {
	p := sub.Payload
	now := s.pending.Now()

	payment, err := json.Marshal(p.Payment)
	if err != nil {
		return nil, fmt.Errorf("sérialisation des paiements: %w", err)
	}
	raw, err := json.Marshal(map[string]any{"submit": sub.InvoiceResponse, "confirm": resp})
	if err != nil {
		return nil, fmt.Errorf("sérialisation de la réponse e-MECeF: %w", err)
	}

	var customerIFU string
	if p.Customer.IFU != nil {
		customerIFU = *p.Customer.IFU
	}
	nim := cert.Nim
	if nim == "" {
		nim = p.Nim
	}
	submittedAt, confirmedAt := sub.SubmittedAt, now

	var invoice *entity.Invoice
	err = s.txRunner.RunSale(ctx, func(
		saleRepo repository.SaleRepository,
		invoiceRepo repository.InvoiceRepository,
		productRepo repository.ProductRepository,
	) error {
		n, err := invoiceRepo.NextNumber(ctx, p.Type, now.Year())
		if err != nil {
			return err
		}

		sale := &entity.Sale{
			ID:           uuid.New().String(),
			CustomerName: p.Customer.Name,
			CustomerIFU:  customerIFU,
			Subtotal:     p.Subtotal,
			VatTotal:     p.VatTotal(),
			AibAmount:    p.AibAmount,
			Total:        p.Total,
			Payment:      payment,
			CreatedBy:    userID,
			CreatedAt:    now,
		}
		if err := saleRepo.Create(ctx, sale); err != nil {
			return err
		}

		creditNote := pkgemecef.IsCreditNote(p.Type)
		for _, it := range p.Items {
			item := &entity.SaleItem{
				ID:          uuid.New().String(),
				SaleID:      sale.ID,
				ProductID:   it.ProductID,
				Name:        it.Name,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				TaxGroup:    string(it.TaxGroup),
				VatAmount:   it.VatAmount,
				TotalAmount: it.TotalAmount,
			}
			if err := saleRepo.CreateItem(ctx, item); err != nil {
				return err
			}
			if it.ProductID != "" && !creditNote {
				err := productRepo.DecrementStock(ctx, it.ProductID, it.Quantity)
				switch {
				case err == nil:
				case errors.Is(err, domain.ErrNotFound):
					// article hors catalogue : la facture certifiée reste enregistrée
					s.log.Warn().Str("uid", sub.UID).Str("product_id", it.ProductID).Msg("produit inconnu, stock non décrémenté")
				case errors.Is(err, domain.ErrInsufficientStock):
					// la vente est certifiée par la DGI : elle est enregistrée, le stock est à régulariser
					s.log.Warn().Str("uid", sub.UID).Str("product_id", it.ProductID).
						Str("quantity", it.Quantity.String()).Msg("stock insuffisant pour un article certifié, stock non décrémenté")
				default:
					return err
				}
			}
		}

		invoice = &entity.Invoice{
			ID:               uuid.New().String(),
			SaleID:           sale.ID,
			Number:           FormatInvoiceNumber(p.Type, now.Year(), n),
			Type:             p.Type,
			CustomerName:     p.Customer.Name,
			CustomerIFU:      customerIFU,
			Subtotal:         p.Subtotal,
			VatTotal:         p.VatTotal(),
			AibAmount:        p.AibAmount,
			Total:            p.Total,
			ImmutableFlag:    true,
			EmcfUID:          sub.UID,
			EmcfStatus:       entity.EmcfStatusConfirmed,
			EmcfCodeMECeFDGI: cert.CodeMECeFDGI,
			EmcfQrCode:       cert.QrCode,
			EmcfDateTime:     cert.DateTime,
			EmcfCounters:     cert.Counters,
			EmcfNim:          nim,
			EmcfPosID:        sub.PosID,
			EmcfRawResponse:  raw,
			EmcfSubmittedAt:  &submittedAt,
			EmcfConfirmedAt:  &confirmedAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return invoiceRepo.Create(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// FormatInvoiceNumber numéro local : FV-2024-000001.
func FormatInvoiceNumber(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, n)
}

// GetInvoice lit une facture soumise auprès de l'API. Sans posID, le point
// de vente de la soumission en attente est utilisé s'il est connu.
func (s *Service) GetInvoice(ctx context.Context, uid, posID string) (domainemecef.Response, error) {
	if posID == "" {
		if sub, ok := s.pending.Get(uid); ok {
			posID = sub.PosID
		}
	}
	creds, err := s.credentials(ctx, posID)
	if err != nil {
		return nil, err
	}
	return s.client.GetInvoice(ctx, *creds, uid)
}

// PendingStatus état et compte à rebours d'une soumission en attente.
func (s *Service) PendingStatus(uid string) (*dto.PendingSubmissionResponse, error) {
	sub, ok := s.pending.Get(uid)
	if !ok {
		return nil, domainemecef.Newf(domainemecef.ErrSubmissionUnknown, "aucune soumission en attente pour %s", uid)
	}
	now := s.pending.Now()
	state := sub.State
	if state == StateSubmitted && now.After(sub.ExpiresAt) {
		state = StateExpired
	}
	return &dto.PendingSubmissionResponse{
		UID:              sub.UID,
		PosID:            sub.PosID,
		State:            string(state),
		SubmittedAt:      sub.SubmittedAt,
		ExpiresAt:        sub.ExpiresAt,
		ExpiresAtMs:      sub.ExpiresAtMs(),
		RemainingSeconds: int64(sub.Remaining(now).Seconds()),
		Total:            sub.Payload.Total,
	}, nil
}

// RunExpirySweeper purge périodiquement les soumissions expirées jusqu'à
// l'annulation de ctx. Aucune annulation n'est envoyée à la DGI : l'état
// fiscal d'une facture expirée reste indéterminé.
func (s *Service) RunExpirySweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired()
		}
	}
}

// SweepExpired une passe de purge ; retourne le nombre de soumissions retirées.
func (s *Service) SweepExpired() int {
	expired := s.pending.SweepExpired()
	for _, sub := range expired {
		s.log.Warn().Str("uid", sub.UID).Str("pos_id", sub.PosID).Time("expires_at", sub.ExpiresAt).
			Msg("soumission e-MECeF expirée sans confirmation ni annulation : état côté DGI indéterminé")
	}
	stale := s.pending.SweepStaleConfirmed()
	for _, sub := range stale {
		ev := s.log.Error().Str("uid", sub.UID).Str("pos_id", sub.PosID)
		if sub.Payload != nil {
			ev = ev.Int64("total", sub.Payload.Total)
		}
		if sub.Certification != nil {
			ev = ev.Str("code_mecef", sub.Certification.CodeMECeFDGI).Str("counters", sub.Certification.Counters)
		}
		ev.Msg("facture certifiée par la DGI jamais enregistrée localement : abandonnée, saisie manuelle requise")
	}
	return len(expired) + len(stale)
}

func tagErr(err error, action string) {
	var e *domainemecef.Error
	if errors.As(err, &e) && e.Action == "" {
		e.Action = action
	}
}

func toPointOfSaleResponse(p *entity.PointOfSale) dto.PointOfSaleResponse {
	return dto.PointOfSaleResponse{
		ID:             p.ID,
		Name:           p.Name,
		BaseURL:        p.BaseURL,
		HasToken:       p.HasToken(),
		TokenEncrypted: p.TokenEncrypted,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
