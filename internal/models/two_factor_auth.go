package models

import "time"

// TwoFactorAuth is the TOTP enrollment for one subject. Absence of the row
// means 2FA is off; Verified=false means setup is pending. The secret is
// envelope-encrypted at rest, backup codes are stored as argon2id hashes.
type TwoFactorAuth struct {
	Bucket            int        `db:"bucket"`
	UserID            string     `db:"user_id"`
	UserType          string     `db:"user_type"`
	Method            string     `db:"method"`
	SecretEncrypted   string     `db:"secret_encrypted"`
	SecretDEK         string     `db:"secret_dek"`
	SecretKeyID       string     `db:"secret_key_id"`
	Verified          bool       `db:"verified"`
	BackupCodeHashes  []string   `db:"backup_code_hashes"`
	BackupCodesIssued bool       `db:"backup_codes_issued"`
	CreatedAt         time.Time  `db:"created_at"`
	VerifiedAt        *time.Time `db:"verified_at"`
}

const MethodTOTP = "totp"
