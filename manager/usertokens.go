package manager

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"

	"github.com/googleads/aw-reporting/token"
)

// UserTokens returns the MCC linkages of a user ordered by top account id.
func (m *Manager) UserTokens(userID string) ([]token.UserToken, error) {
	conn := m.pool.Get()
	defer conn.Close()

	key := fmt.Sprintf("%s:%s", userTokensKey, userID)
	values, err := redis.ByteSlices(conn.Do("HVALS", key))
	if err != nil {
		return nil, err
	}

	tokens := make([]token.UserToken, 0, len(values))
	for _, v := range values {
		var t token.UserToken
		if err := json.Unmarshal(v, &t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].TopAccountID < tokens[j].TopAccountID
	})

	return tokens, nil
}

func (m *Manager) SaveUserToken(t token.UserToken) error {
	conn := m.pool.Get()
	defer conn.Close()

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:%s", userTokensKey, t.UserID)
	if _, err := conn.Do("HSET", key, t.TopAccountID, data); err != nil {
		return err
	}

	return nil
}

func (m *Manager) RemoveUserToken(userID, topAccountID string) error {
	conn := m.pool.Get()
	defer conn.Close()

	key := fmt.Sprintf("%s:%s", userTokensKey, userID)
	res, err := redis.Int64(conn.Do("HDEL", key, topAccountID))
	if err != nil {
		return err
	}

	if res == 0 {
		return ErrUserTokenDoesNotExist
	}

	return nil
}

// HasUserToken reports whether the user authenticated the given MCC.
func (m *Manager) HasUserToken(userID, topAccountID string) (bool, error) {
	conn := m.pool.Get()
	defer conn.Close()

	key := fmt.Sprintf("%s:%s", userTokensKey, userID)
	return redis.Bool(conn.Do("HEXISTS", key, topAccountID))
}

// SaveManagedAccounts files accounts under the MCC. An account already filed
// under a different MCC is refused with ErrAccountBelongsToOtherMCC.
func (m *Manager) SaveManagedAccounts(topAccountID string, accounts []*ManagedAccount) error {
	conn := m.pool.Get()
	defer conn.Close()

	now := time.Now().UTC()
	data := make([][]byte, len(accounts))
	for i, a := range accounts {
		a.TopAccountID = topAccountID
		if a.Timestamp.IsZero() {
			a.Timestamp = now
		}

		d, err := json.Marshal(a)
		if err != nil {
			return err
		}
		data[i] = d
	}

	for i := 0; i < maxTxAttempts; i++ {
		saved, err := saveManagedAccounts(conn, topAccountID, accounts, data)
		if err != nil || saved {
			return err
		}
		log.Debugf("managed accounts changed concurrently, retrying: mcc=%s", topAccountID)
	}

	return ErrConcurrentUpdate
}

// saveManagedAccounts runs one WATCH/MULTI/EXEC attempt. It reports false
// when a watched owner key changed before EXEC.
func saveManagedAccounts(conn redis.Conn, topAccountID string, accounts []*ManagedAccount, data [][]byte) (bool, error) {
	ownerKeys := make([]interface{}, len(accounts))
	for i, a := range accounts {
		ownerKeys[i] = fmt.Sprintf("%s:%s", accountMCCKey, a.AccountID)
	}

	if len(ownerKeys) > 0 {
		if _, err := conn.Do("WATCH", ownerKeys...); err != nil {
			return false, err
		}
	}

	for i, a := range accounts {
		owner, err := redis.String(conn.Do("GET", ownerKeys[i]))
		if err == redis.ErrNil {
			continue
		} else if err != nil {
			conn.Do("UNWATCH")
			return false, err
		}
		if owner != topAccountID {
			conn.Do("UNWATCH")
			return false, fmt.Errorf("%w: account=%s mcc=%s", ErrAccountBelongsToOtherMCC, a.AccountID, owner)
		}
	}

	key := fmt.Sprintf("%s:%s", mccAccountsKey, topAccountID)
	if err := conn.Send("MULTI"); err != nil {
		return false, err
	}
	for i, a := range accounts {
		if err := conn.Send("HSET", key, a.AccountID, data[i]); err != nil {
			return false, err
		}
		if err := conn.Send("SET", ownerKeys[i], topAccountID); err != nil {
			return false, err
		}
	}

	reply, err := conn.Do("EXEC")
	if err != nil {
		return false, err
	}

	return reply != nil, nil
}

func (m *Manager) ManagedAccounts(topAccountID string) ([]*ManagedAccount, error) {
	conn := m.pool.Get()
	defer conn.Close()

	key := fmt.Sprintf("%s:%s", mccAccountsKey, topAccountID)
	values, err := redis.ByteSlices(conn.Do("HVALS", key))
	if err != nil {
		return nil, err
	}

	accounts := make([]*ManagedAccount, 0, len(values))
	for _, v := range values {
		var a *ManagedAccount
		if err := json.Unmarshal(v, &a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountID < accounts[j].AccountID
	})

	return accounts, nil
}

func (m *Manager) ManagedAccount(accountID string) (*ManagedAccount, error) {
	conn := m.pool.Get()
	defer conn.Close()

	topAccountID, err := redis.String(conn.Do("GET", fmt.Sprintf("%s:%s", accountMCCKey, accountID)))
	if err == redis.ErrNil {
		return nil, ErrAccountDoesNotExist
	} else if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%s", mccAccountsKey, topAccountID)
	d, err := redis.Bytes(conn.Do("HGET", key, accountID))
	if err == redis.ErrNil {
		return nil, ErrAccountDoesNotExist
	} else if err != nil {
		return nil, err
	}

	var account *ManagedAccount
	if err := json.Unmarshal(d, &account); err != nil {
		return nil, err
	}

	return account, nil
}
