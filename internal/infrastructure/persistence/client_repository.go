package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClientRepository implements client.ClientRepository using GORM
type GormClientRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db, now: time.Now}
}

// FindByIDForPharmacy finds a client by ID within a pharmacy
func (r *GormClientRepository) FindByIDForPharmacy(ctx context.Context, pharmacyID, id uuid.UUID) (*client.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).
		Where("pharmacy_id = ? AND id = ?", pharmacyID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByPhone finds a client by normalized phone number within a pharmacy
func (r *GormClientRepository) FindByPhone(ctx context.Context, pharmacyID uuid.UUID, phone string) (*client.Client, error) {
	if phone == "" {
		return nil, shared.NewValidationError("phone cannot be empty")
	}
	var model models.ClientModel
	if err := r.db.WithContext(ctx).
		Where("pharmacy_id = ? AND phone = ?", pharmacyID, phone).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAllForPharmacy lists the clients of a pharmacy
func (r *GormClientRepository) FindAllForPharmacy(ctx context.Context, pharmacyID uuid.UUID, filter shared.Filter) ([]client.Client, error) {
	var clientModels []models.ClientModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ClientModel{}).Where("pharmacy_id = ?", pharmacyID), filter)

	if err := query.Find(&clientModels).Error; err != nil {
		return nil, err
	}

	clients := make([]client.Client, 0, len(clientModels))
	for i := range clientModels {
		c, err := clientModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, nil
}

// CountForPharmacy counts the clients matching filter, ignoring pagination
func (r *GormClientRepository) CountForPharmacy(ctx context.Context, pharmacyID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.ClientModel{}).Where("pharmacy_id = ?", pharmacyID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByPhone reports whether the pharmacy already has a client with phone
func (r *GormClientRepository) ExistsByPhone(ctx context.Context, pharmacyID uuid.UUID, phone string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ClientModel{}).
		Where("pharmacy_id = ? AND phone = ?", pharmacyID, phone).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts or overwrites a client without a version check
func (r *GormClientRepository) Save(ctx context.Context, c *client.Client) error {
	c.Touch(r.now())
	model := models.ClientModelFromDomain(c)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateWriteError(err, "client")
	}
	c.MarkPersisted()
	return nil
}

// SaveWithLock updates a client if nobody changed it since it was loaded
func (r *GormClientRepository) SaveWithLock(ctx context.Context, c *client.Client) error {
	if err := saveClientWithLock(r.db.WithContext(ctx), c, r.now()); err != nil {
		return err
	}
	c.MarkPersisted()
	return nil
}

// saveClientWithLock runs the versioned update on db, which may be a transaction
func saveClientWithLock(db *gorm.DB, c *client.Client, at time.Time) error {
	c.Touch(at)
	model := models.ClientModelFromDomain(c)
	result := db.Model(model).
		Select("*").
		Omit("id", "pharmacy_id", "created_at", "created_by").
		Where("pharmacy_id = ? AND version = ?", c.PharmacyID, c.PersistedVersion()).
		Updates(model)

	if result.Error != nil {
		return translateWriteError(result.Error, "client")
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("client %s was modified by another request", c.ID))
	}
	return nil
}

// DeleteForPharmacy deletes a client within a pharmacy
func (r *GormClientRepository) DeleteForPharmacy(ctx context.Context, pharmacyID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ClientModel{}, "pharmacy_id = ? AND id = ?", pharmacyID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// applyFilter applies filter options, ordering and pagination
func (r *GormClientRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, ClientSortFields, "created_at")
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("last_name ASC, first_name ASC")
	}

	return query
}

// applyFilterWithoutPagination applies search and the "status", "tag" and
// "owes_money" filter keys
func (r *GormClientRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "tag":
			if tag, ok := value.(string); ok && tag != "" {
				query = query.Where("CAST(tags AS TEXT) LIKE ?", `%"`+strings.ToLower(tag)+`"%`)
			}
		case "owes_money":
			if value == true {
				query = query.Where("balance > 0")
			} else {
				query = query.Where("balance <= 0")
			}
		}
	}

	return query
}

// translateWriteError maps driver errors onto domain errors
func translateWriteError(err error, entity string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.CodeAlreadyExists, entity+" already exists")
	}
	return err
}

// Ensure GormClientRepository implements ClientRepository
var _ client.ClientRepository = (*GormClientRepository)(nil)
