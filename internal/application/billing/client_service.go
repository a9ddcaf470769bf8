package billing

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ClientService handles client account operations
type ClientService struct {
	clientRepo     client.ClientRepository
	cfg            Config
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	metrics        *telemetry.BillingMetrics
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo client.ClientRepository, cfg Config, logger *zap.Logger) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		cfg:        cfg.withDefaults(),
		logger:     nopIfNil(logger),
	}
}

// SetEventPublisher sets the event publisher for client events
func (s *ClientService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBillingMetrics sets the billing metrics recorder
func (s *ClientService) SetBillingMetrics(metrics *telemetry.BillingMetrics) {
	s.metrics = metrics
}

// Create registers a new client. The phone number must be unique within the pharmacy.
func (s *ClientService) Create(ctx context.Context, pharmacyID uuid.UUID, req CreateClientRequest) (resp *ClientResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "client", "create",
		attribute.String(telemetry.SpanAttrPharmacyID, pharmacyID.String()))
	started := time.Now()
	defer func() {
		s.metrics.RecordOperation(ctx, "client.create", started, err)
		telemetry.EndSpan(span, err)
	}()

	phone, err := s.parsePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	exists, err := s.clientRepo.ExistsByPhone(ctx, pharmacyID, phone.Normalized())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Client with this phone already exists")
	}

	currency, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}
	limit := s.cfg.DefaultCreditLimit
	if req.CreditLimit != nil {
		limit = *req.CreditLimit
	}
	creditLimit, err := valueobject.NewMoney(limit, currency)
	if err != nil {
		return nil, err
	}

	c, err := client.NewClient(pharmacyID, req.FirstName, req.LastName, phone, creditLimit)
	if err != nil {
		return nil, err
	}

	details := client.ContactDetails{}
	if req.Email != "" {
		details.Email = &req.Email
	}
	if req.TaxID != "" {
		details.TaxID = &req.TaxID
	}
	if req.Notes != "" {
		details.Notes = &req.Notes
	}
	if req.Address != nil {
		addr, err := toAddress(req.Address)
		if err != nil {
			return nil, err
		}
		details.Address = &addr
	}
	if details != (client.ContactDetails{}) {
		if err := c.UpdateContact(details); err != nil {
			return nil, err
		}
	}
	for _, tag := range req.Tags {
		if err := c.AddTag(tag); err != nil {
			return nil, err
		}
	}
	if req.ExternalID != "" {
		c.SetExternalID(req.ExternalID)
	}
	if req.WhatsApp {
		c.OptInWhatsApp(req.WhatsAppName)
	}
	if req.CreatedBy != nil {
		c.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.clientRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	// ClientCreated already carries the initial contact data
	events := c.GetDomainEvents()
	c.ClearDomainEvents()
	if len(events) > 0 {
		c.AddDomainEvent(events[0])
	}
	publishEvents(ctx, s.eventPublisher, s.logger, c)

	response := ToClientResponse(c)
	return &response, nil
}

// GetByID retrieves a client by ID
func (s *ClientService) GetByID(ctx context.Context, pharmacyID, clientID uuid.UUID) (*ClientResponse, error) {
	c, err := s.clientRepo.FindByIDForPharmacy(ctx, pharmacyID, clientID)
	if err != nil {
		return nil, err
	}
	response := ToClientResponse(c)
	return &response, nil
}

// GetByPhone retrieves a client by phone number in any accepted format
func (s *ClientService) GetByPhone(ctx context.Context, pharmacyID uuid.UUID, rawPhone string) (*ClientResponse, error) {
	phone, err := s.parsePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	c, err := s.clientRepo.FindByPhone(ctx, pharmacyID, phone.Normalized())
	if err != nil {
		return nil, err
	}
	response := ToClientResponse(c)
	return &response, nil
}

// GetBalance returns the account position of a client
func (s *ClientService) GetBalance(ctx context.Context, pharmacyID, clientID uuid.UUID) (*BalanceResponse, error) {
	c, err := s.clientRepo.FindByIDForPharmacy(ctx, pharmacyID, clientID)
	if err != nil {
		return nil, err
	}
	response := ToBalanceResponse(c.Balance)
	return &response, nil
}

// List returns a page of the pharmacy's clients
func (s *ClientService) List(ctx context.Context, pharmacyID uuid.UUID, filter ClientListFilter) (*shared.Paginated[ClientResponse], error) {
	f := shared.DefaultFilter()
	f.OrderBy = ""
	f.Search = strings.TrimSpace(filter.Search)
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
		f.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		status, err := client.ParseStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		f.Filters["status"] = string(status)
	}
	if filter.Tag != "" {
		f.Filters["tag"] = filter.Tag
	}
	if filter.OwesMoney != nil {
		f.Filters["owes_money"] = *filter.OwesMoney
	}

	clients, err := s.clientRepo.FindAllForPharmacy(ctx, pharmacyID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.clientRepo.CountForPharmacy(ctx, pharmacyID, f)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToClientResponses(clients), total, f.Page, f.PageSize)
	return &page, nil
}

// UpdateContact changes personal data, tags and messaging preferences
func (s *ClientService) UpdateContact(ctx context.Context, pharmacyID, clientID uuid.UUID, req UpdateClientRequest) (*ClientResponse, error) {
	details := client.ContactDetails{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		TaxID:     req.TaxID,
		Notes:     req.Notes,
	}
	if req.Phone != nil {
		phone, err := s.parsePhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		details.Phone = &phone
	}
	if req.Address != nil {
		addr, err := toAddress(req.Address)
		if err != nil {
			return nil, err
		}
		details.Address = &addr
	}

	return s.mutate(ctx, pharmacyID, clientID, "client.update", func(c *client.Client) error {
		if details.Phone != nil && !details.Phone.Equals(c.Phone) {
			exists, err := s.clientRepo.ExistsByPhone(ctx, pharmacyID, details.Phone.Normalized())
			if err != nil {
				return err
			}
			if exists {
				return shared.NewDomainError(shared.CodeAlreadyExists, "Client with this phone already exists")
			}
		}
		if err := c.UpdateContact(details); err != nil {
			return err
		}
		if req.Tags != nil {
			for _, tag := range slices.Clone(c.Tags) {
				c.RemoveTag(tag)
			}
			for _, tag := range req.Tags {
				if err := c.AddTag(tag); err != nil {
					return err
				}
			}
		}
		if req.ExternalID != nil {
			c.SetExternalID(*req.ExternalID)
		}
		if req.WhatsApp != nil {
			if *req.WhatsApp {
				name := ""
				if req.WhatsAppName != nil {
					name = *req.WhatsAppName
				}
				c.OptInWhatsApp(name)
			} else {
				c.OptOutWhatsApp()
			}
		}
		return nil
	})
}

// UpdateCreditLimit sets a new credit limit in the client's balance currency
func (s *ClientService) UpdateCreditLimit(ctx context.Context, pharmacyID, clientID uuid.UUID, req UpdateCreditLimitRequest) (*ClientResponse, error) {
	return s.mutate(ctx, pharmacyID, clientID, "client.update_credit_limit", func(c *client.Client) error {
		limit, err := valueobject.NewMoney(req.CreditLimit, c.Balance.Currency())
		if err != nil {
			return err
		}
		return c.UpdateCreditLimit(limit)
	})
}

// Suspend blocks new charges on the account
func (s *ClientService) Suspend(ctx context.Context, pharmacyID, clientID uuid.UUID, req StatusChangeRequest) (*ClientResponse, error) {
	return s.mutate(ctx, pharmacyID, clientID, "client.suspend", func(c *client.Client) error {
		return c.Suspend(req.Reason)
	})
}

// Reactivate returns a suspended client to active
func (s *ClientService) Reactivate(ctx context.Context, pharmacyID, clientID uuid.UUID) (*ClientResponse, error) {
	return s.mutate(ctx, pharmacyID, clientID, "client.reactivate", func(c *client.Client) error {
		return c.Reactivate()
	})
}

// Close ends the account for good
func (s *ClientService) Close(ctx context.Context, pharmacyID, clientID uuid.UUID, req StatusChangeRequest) (*ClientResponse, error) {
	return s.mutate(ctx, pharmacyID, clientID, "client.close", func(c *client.Client) error {
		return c.Close(req.Reason)
	})
}

// Delete removes a closed client whose balance is settled
func (s *ClientService) Delete(ctx context.Context, pharmacyID, clientID uuid.UUID) error {
	c, err := s.clientRepo.FindByIDForPharmacy(ctx, pharmacyID, clientID)
	if err != nil {
		return err
	}
	if !c.CanBeDeleted() {
		return shared.NewDomainError(shared.CodeInvalidState, "Only closed clients with a settled balance can be deleted")
	}
	return s.clientRepo.DeleteForPharmacy(ctx, pharmacyID, clientID)
}

// mutate loads the client, applies fn and saves it with optimistic locking,
// retrying the whole cycle when another request changed the client first.
func (s *ClientService) mutate(ctx context.Context, pharmacyID, clientID uuid.UUID, operation string, fn func(*client.Client) error) (resp *ClientResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "client", strings.TrimPrefix(operation, "client."),
		attribute.String(telemetry.SpanAttrPharmacyID, pharmacyID.String()),
		attribute.String(telemetry.SpanAttrClientID, clientID.String()))
	started := time.Now()
	defer func() {
		s.metrics.RecordOperation(ctx, operation, started, err)
		telemetry.EndSpan(span, err)
	}()

	var saved *client.Client
	err = retryOnConflict(ctx, s.metrics, operation, s.cfg.MaxRetries, func(attempt int) error {
		span.SetAttributes(attribute.Int(telemetry.SpanAttrAttempt, attempt))
		c, err := s.clientRepo.FindByIDForPharmacy(ctx, pharmacyID, clientID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := s.clientRepo.SaveWithLock(ctx, c); err != nil {
			return err
		}
		saved = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, s.eventPublisher, s.logger, saved)
	response := ToClientResponse(saved)
	return &response, nil
}

func (s *ClientService) parsePhone(raw string) (valueobject.PhoneNumber, error) {
	return valueobject.NewPhoneNumberWithCountryCode(raw, s.cfg.DefaultCountryCode)
}

func (s *ClientService) currency(code string) (valueobject.Currency, error) {
	if code == "" {
		return s.cfg.DefaultCurrency, nil
	}
	return valueobject.ParseCurrency(code)
}

func toAddress(in *AddressInput) (valueobject.Address, error) {
	if in.Street == "" && in.City == "" && in.State == "" && in.PostalCode == "" && in.Country == "" {
		return valueobject.EmptyAddress(), nil
	}
	var opts []valueobject.AddressOption
	if in.PostalCode != "" {
		opts = append(opts, valueobject.WithPostalCode(in.PostalCode))
	}
	if in.Country != "" {
		opts = append(opts, valueobject.WithCountry(in.Country))
	}
	return valueobject.NewAddress(in.Street, in.City, in.State, opts...)
}
