// Package passhash implements argon2id password hashing with PHC-format
// encoded strings. It is the only place plaintext secrets are compared;
// every stored credential (passwords, backup codes) is a hash produced here.
// Пакет passhash реализует хэширование паролей argon2id со строками в
// формате PHC. Это единственное место сравнения секретов открытым текстом;
// каждый хранимый секрет (пароли, резервные коды) — хэш, созданный здесь.
package passhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Memory-hard enough for an online service while
// keeping login latency acceptable.
// Параметры argon2id. Достаточно требовательны к памяти для онлайн-сервиса
// при приемлемой задержке входа.
const (
	timeCost    uint32 = 3
	memoryKiB   uint32 = 64 * 1024
	parallelism uint8  = 1
	saltLength  uint32 = 16
	keyLength   uint32 = 32
)

// ErrMalformedHash is returned when an encoded hash cannot be parsed.
// ErrMalformedHash возвращается, когда закодированный хэш не разбирается.
var ErrMalformedHash = errors.New("passhash: malformed encoded hash")

// ErrIncompatibleVersion is returned for hashes from a newer argon2 version.
// ErrIncompatibleVersion возвращается для хэшей более новой версии argon2.
var ErrIncompatibleVersion = errors.New("passhash: incompatible argon2 version")

// Hash derives an argon2id hash of password with a fresh random salt and
// returns it in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
//
// Hash вычисляет argon2id хэш пароля со свежей случайной солью и
// возвращает его в строковом формате PHC.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("passhash: generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, timeCost, memoryKiB, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memoryKiB,
		timeCost,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether password matches the PHC-encoded hash. The
// comparison is constant-time. Parameters are read from the encoded string
// so old hashes keep verifying after parameter upgrades.
// Verify сообщает, соответствует ли пароль PHC-закодированному хэшу.
// Сравнение выполняется за постоянное время. Параметры читаются из
// закодированной строки, поэтому старые хэши проходят проверку после
// обновления параметров.
func Verify(password, encoded string) (bool, error) {
	params, salt, hash, err := decode(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.parallelism, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

type params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

// decode parses a PHC-format argon2id string into parameters, salt and hash.
// decode разбирает строку argon2id в формате PHC на параметры, соль и хэш.
func decode(encoded string) (params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return params{}, nil, nil, ErrIncompatibleVersion
	}

	var p params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}

	return p, salt, hash, nil
}
