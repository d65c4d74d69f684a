package dao

import (
	"fmt"

	"papertrader/internal/models"

	"gorm.io/gorm"
)

// AccountDAO handles database operations for accounts
type AccountDAO struct {
	db *gorm.DB
}

// AccountDAOInterface defines the contract for account data access
type AccountDAOInterface interface {
	Create(account *models.Account) error
	Get(name string) (*models.Account, error)
	GetWithTx(tx *gorm.DB, name string) (*models.Account, error)
	List() ([]models.Account, error)
	Update(account *models.Account) error
	UpdateCashWithTx(tx *gorm.DB, name string, cash float64) error
	DeleteWithTx(tx *gorm.DB, name string) (int64, error)
}

// NewAccountDAO creates a new account DAO instance
func NewAccountDAO(db *gorm.DB) AccountDAOInterface {
	return &AccountDAO{db: db}
}

func (dao *AccountDAO) Create(account *models.Account) error {
	if err := dao.db.Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (dao *AccountDAO) Get(name string) (*models.Account, error) {
	return dao.GetWithTx(dao.db, name)
}

func (dao *AccountDAO) GetWithTx(tx *gorm.DB, name string) (*models.Account, error) {
	var account models.Account
	if err := tx.Where("name = ?", name).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (dao *AccountDAO) List() ([]models.Account, error) {
	var accounts []models.Account
	if err := dao.db.Order("created_at").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (dao *AccountDAO) Update(account *models.Account) error {
	if err := dao.db.Save(account).Error; err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// UpdateCashWithTx sets the cash balance within a transaction
func (dao *AccountDAO) UpdateCashWithTx(tx *gorm.DB, name string, cash float64) error {
	if err := tx.Model(&models.Account{}).Where("name = ?", name).Update("cash", cash).Error; err != nil {
		return fmt.Errorf("failed to update account cash: %w", err)
	}
	return nil
}

// DeleteWithTx removes the account row; related rows are deleted by the
// account service in the same transaction.
func (dao *AccountDAO) DeleteWithTx(tx *gorm.DB, name string) (int64, error) {
	result := tx.Where("name = ?", name).Delete(&models.Account{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete account: %w", result.Error)
	}
	return result.RowsAffected, nil
}
