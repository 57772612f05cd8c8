package service

import (
	"studytrack/internal/entity"
	"studytrack/internal/utils"
)

const (
	emailCodeDigits   = 7
	recoveryCodeBytes = 3
)

// SecureCodeGenerator issues 7 digit numeric codes for email verification and
// 6 character uppercase hex codes for recovery and reset.
type SecureCodeGenerator struct{}

func (SecureCodeGenerator) Generate(purpose entity.CodePurpose) (string, error) {
	if purpose == entity.EmailVerify {
		return utils.GenerateNumericCode(emailCodeDigits)
	}
	return utils.GenerateHexCode(recoveryCodeBytes)
}
