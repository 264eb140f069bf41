// Package models defines the domain models for the KeyGate API Key Service.
// This file contains the Service aggregate that owns default policy and key counters.
package models

import (
	"strconv"
	"time"

	"github.com/turtacn/keygate/pkg/constants"
	"github.com/turtacn/keygate/pkg/errors"
	"github.com/turtacn/keygate/pkg/utils"
)

// Service represents the top-level issuer of API keys. It holds the default
// rate-limit policy and the aggregate counters tying the service to its keys.
// Service 代表 API 密钥的顶级签发方。
// 它持有默认速率限制策略以及将服务与其密钥关联起来的聚合计数器。
type Service struct {
	// Authority is the identity of the principal administratively controlling
	// the service. Immutable after creation and the record's storage key.
	// Authority 是对服务进行管理控制的主体身份。创建后不可变，同时作为记录的存储键。
	Authority string `json:"authority" gorm:"primaryKey;size:128"`

	// Name is the human-readable service name, at most 32 characters.
	// Name 是服务的显示名称，最长 32 个字符。
	Name string `json:"name" gorm:"size:32"`

	// DefaultRateLimit is the requests-per-day ceiling applied to keys that
	// do not specify their own.
	// DefaultRateLimit 是应用于未自行指定限额的密钥的每日请求上限。
	DefaultRateLimit uint64 `json:"default_rate_limit"`

	// TotalKeys is the number of keys ever created. It only increases and
	// doubles as the next key's sequence number.
	// TotalKeys 是曾经创建的密钥总数。它只增不减，并兼作下一个密钥的序号。
	TotalKeys uint64 `json:"total_keys"`

	// ActiveKeys is the number of currently active keys. Never exceeds TotalKeys.
	// ActiveKeys 是当前处于活动状态的密钥数量。永远不会超过 TotalKeys。
	ActiveKeys uint64 `json:"active_keys"`

	// CreatedAt is the wall-clock time the record was persisted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the wall-clock time of the last persisted mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the storage table name for GORM.
func (Service) TableName() string {
	return "services"
}

// ValidateName checks the display-name length bound shared by services and keys.
func ValidateName(name string) *errors.AppError {
	if len(name) > constants.MaxNameLen {
		return errors.ErrNameTooLong.WithDetail("name_length", strconv.Itoa(len(name)))
	}
	return nil
}

// NewService initializes a service record for the given authority with zeroed
// counters. The storage substrate enforces that an authority owns at most one
// service record.
func NewService(authority, name string, defaultRateLimit uint64) (*Service, *errors.AppError) {
	if appErr := ValidateName(name); appErr != nil {
		return nil, appErr
	}

	return &Service{
		Authority:        authority,
		Name:             name,
		DefaultRateLimit: defaultRateLimit,
		TotalKeys:        0,
		ActiveKeys:       0,
	}, nil
}

// NextSequence returns the sequence number the next created key will carry.
func (s *Service) NextSequence() uint64 {
	return s.TotalKeys
}

// AdmitKey consumes the next sequence number and counts a newly issued key as
// active. Returns the sequence assigned to the new key.
func (s *Service) AdmitKey() uint64 {
	seq := s.TotalKeys
	s.TotalKeys = utils.SaturatingAddUint64(s.TotalKeys, 1)
	s.ActiveKeys = utils.SaturatingAddUint64(s.ActiveKeys, 1)
	return seq
}

// ReleaseActiveKey counts a revocation, flooring the active counter at zero.
func (s *Service) ReleaseActiveKey() {
	s.ActiveKeys = utils.SaturatingSubUint64(s.ActiveKeys, 1)
}

// RestoreActiveKey counts a reactivation.
func (s *Service) RestoreActiveKey() {
	s.ActiveKeys = utils.SaturatingAddUint64(s.ActiveKeys, 1)
}
