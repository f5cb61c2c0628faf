package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
)

type ClassifierSuite struct {
	suite.Suite
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *ClassifierSuite) TestDaysToExpiry() {
	now := day(2025, time.January, 19)

	s.Equal(60, DaysToExpiry(day(2025, time.March, 20), now))
	s.Equal(0, DaysToExpiry(day(2025, time.January, 19), now))
	s.Equal(-1, DaysToExpiry(day(2025, time.January, 18), now))

	s.Run("ignores time of day and timezone", func() {
		lateNow := time.Date(2025, time.January, 19, 23, 50, 0, 0, time.UTC)
		earlyExpiry := time.Date(2025, time.January, 20, 0, 5, 0, 0, time.FixedZone("X", -3600))
		// 01:05 UTC on the 20th, so still one whole day out.
		s.Equal(1, DaysToExpiry(earlyExpiry, lateNow))
	})
}

func (s *ClassifierSuite) TestThresholdBoundaries() {
	now := day(2025, time.June, 1)
	threshold := 30

	s.Run("exactly threshold days out is valid", func() {
		s.Equal(CertStatusValid, ClassifyStatus(now.AddDate(0, 0, 30), now, threshold))
	})

	s.Run("one day inside the threshold is expiring", func() {
		s.Equal(CertStatusExpiring, ClassifyStatus(now.AddDate(0, 0, 29), now, threshold))
	})

	s.Run("expiry day itself is expiring", func() {
		s.Equal(CertStatusExpiring, ClassifyStatus(now, now, threshold))
	})

	s.Run("day after expiry is expired", func() {
		s.Equal(CertStatusExpired, ClassifyStatus(now.AddDate(0, 0, -1), now, threshold))
	})
}

func (s *ClassifierSuite) TestZeroThreshold() {
	now := day(2025, time.June, 1)

	// With no warning window the certification stays valid through its expiry
	// day and flips straight to expired the day after.
	s.Equal(CertStatusValid, ClassifyStatus(now, now, 0))
	s.Equal(CertStatusValid, ClassifyStatus(now.AddDate(0, 0, 5), now, 0))
	s.Equal(CertStatusExpired, ClassifyStatus(now.AddDate(0, 0, -1), now, 0))
}

type CertificationSuite struct {
	suite.Suite
	now time.Time
}

func (s *CertificationSuite) SetupTest() {
	s.now = day(2025, time.January, 19)
}

func TestCertificationSuite(t *testing.T) {
	suite.Run(t, new(CertificationSuite))
}

func (s *CertificationSuite) newCert(expiry time.Time, threshold int) *Certification {
	cert, err := NewCertification(
		id.CertificationID(uuid.New()),
		id.TenantID(uuid.New()),
		id.SchoolID(uuid.New()),
		id.PersonID(uuid.New()),
		"cpr",
		nil,
		expiry,
		threshold,
		s.now,
	)
	s.Require().NoError(err)
	return cert
}

func (s *CertificationSuite) TestNewClassifiesImmediately() {
	cert := s.newCert(s.now.AddDate(0, 0, 10), 30)
	s.Equal(CertStatusExpiring, cert.Status)
	s.Equal(s.now, cert.StatusComputedAt)
}

func (s *CertificationSuite) TestNewValidation() {
	s.Run("requires cert type key", func() {
		_, err := NewCertification(id.CertificationID(uuid.New()), id.TenantID(uuid.New()),
			id.SchoolID(uuid.New()), id.PersonID(uuid.New()), "  ", nil, s.now, 30, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects issue date after expiry", func() {
		issued := s.now.AddDate(1, 0, 0)
		_, err := NewCertification(id.CertificationID(uuid.New()), id.TenantID(uuid.New()),
			id.SchoolID(uuid.New()), id.PersonID(uuid.New()), "cpr", &issued, s.now, 30, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *CertificationSuite) TestReclassify() {
	cert := s.newCert(day(2025, time.March, 20), 30)
	s.Equal(CertStatusValid, cert.Status)

	s.Run("no-op while the classification holds", func() {
		s.False(cert.Reclassify(s.now.AddDate(0, 0, 10), 30))
		s.Equal(CertStatusValid, cert.Status)
	})

	s.Run("flips to expiring inside the window", func() {
		later := day(2025, time.February, 19)
		s.True(cert.Reclassify(later, 30))
		s.Equal(CertStatusExpiring, cert.Status)
		s.Equal(later, cert.StatusComputedAt)
	})

	s.Run("second pass at the same instant writes nothing", func() {
		s.False(cert.Reclassify(day(2025, time.February, 19), 30))
	})
}

func (s *CertificationSuite) TestApplyExpiryChange() {
	cert := s.newCert(day(2025, time.March, 20), 30)

	s.Require().NoError(cert.ApplyExpiryChange(day(2026, time.March, 20), s.now, 30))
	s.Equal(CertStatusValid, cert.Status)

	err := cert.ApplyExpiryChange(time.Time{}, s.now, 30)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
