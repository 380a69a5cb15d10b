package persist

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/VictoriaMetrics/fastcache"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tonindexer/scanner/core/schema"
)

// Snapshots bounds concurrent domain upserts/lookups to the pool's
// connection budget. A small fastcache layer remembers the
// last_transaction_lt each address was last written at, so a batch that
// re-touches an account it just upserted can skip the round-trip the SQL
// guard would reject anyway.
type Snapshots struct {
	pool    Pool
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	ltCache *fastcache.Cache
}

// NewSnapshots wraps pool with a worker bounded to maxConcurrent in-flight
// upsert/lookup statements and rated at ratePerSec upserts/sec.
func NewSnapshots(pool Pool, maxConcurrent int64, ratePerSec int) *Snapshots {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &Snapshots{
		pool:    pool,
		sem:     semaphore.NewWeighted(maxConcurrent),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		ltCache: fastcache.New(4 * 1024 * 1024),
	}
}

func (s *Snapshots) acquire(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return schema.DBError("snapshots.rate_wait", err)
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return schema.DBError("snapshots.acquire", err)
	}
	return nil
}

func (s *Snapshots) release() { s.sem.Release(1) }

// staleAgainstCache reports whether lt is not an improvement over the last
// last_transaction_lt this process wrote for key, so the caller can skip the
// DB round-trip the upsert's WHERE guard would reject anyway.
func (s *Snapshots) staleAgainstCache(key string, lt uint64) bool {
	raw, ok := s.ltCache.HasGet(nil, []byte(key))
	if !ok {
		return false
	}
	cached, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return false
	}
	return lt <= cached
}

func (s *Snapshots) rememberLt(key string, lt uint64) {
	s.ltCache.Set([]byte(key), []byte(strconv.FormatUint(lt, 10)))
}

// UpsertJettonWallet applies the last-writer-wins guarded upsert: the row is
// only written when w.LastTransactionLt is strictly greater than the stored
// value.
func (s *Snapshots) UpsertJettonWallet(ctx context.Context, w *schema.JettonWalletData) error {
	cacheKey := "jw:" + w.Address
	if s.staleAgainstCache(cacheKey, w.LastTransactionLt) {
		return nil
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO jetton_wallets (balance, address, owner, jetton, last_transaction_lt, code_hash, data_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			balance = EXCLUDED.balance,
			owner = EXCLUDED.owner,
			jetton = EXCLUDED.jetton,
			last_transaction_lt = EXCLUDED.last_transaction_lt,
			code_hash = EXCLUDED.code_hash,
			data_hash = EXCLUDED.data_hash
		WHERE jetton_wallets.last_transaction_lt < EXCLUDED.last_transaction_lt`,
		w.Balance.Dec(), w.Address, w.Owner, w.Jetton, w.LastTransactionLt, w.CodeHash, w.DataHash,
	)
	if err != nil {
		return wrapErr("upsert_jetton_wallet", err)
	}
	s.rememberLt(cacheKey, w.LastTransactionLt)
	return nil
}

// GetJettonWallet looks up a stored wallet snapshot by address.
func (s *Snapshots) GetJettonWallet(ctx context.Context, addr string) (*schema.JettonWalletData, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	var w schema.JettonWalletData
	var balance string
	row := s.pool.QueryRow(ctx, `
		SELECT balance, address, owner, jetton, last_transaction_lt, code_hash, data_hash
		FROM jetton_wallets WHERE address = $1`, addr)
	if err := row.Scan(&balance, &w.Address, &w.Owner, &w.Jetton, &w.LastTransactionLt, &w.CodeHash, &w.DataHash); err != nil {
		return nil, wrapErr("get_jetton_wallet", err)
	}
	bal, err := parseUint256(balance)
	if err != nil {
		return nil, schema.DBError("get_jetton_wallet", err)
	}
	w.Balance = bal
	return &w, nil
}

// UpsertJettonMaster applies the same LWW guard for jetton masters.
func (s *Snapshots) UpsertJettonMaster(ctx context.Context, m *schema.JettonMasterData) error {
	cacheKey := "jm:" + m.Address
	if s.staleAgainstCache(cacheKey, m.LastTransactionLt) {
		return nil
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	content, err := json.Marshal(m.JettonContent)
	if err != nil {
		return schema.DBError("upsert_jetton_master", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jetton_masters (address, total_supply, mintable, admin_address, jetton_content,
			jetton_wallet_code_hash, data_hash, code_hash, last_transaction_lt, code_boc, data_boc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (address) DO UPDATE SET
			total_supply = EXCLUDED.total_supply,
			mintable = EXCLUDED.mintable,
			admin_address = EXCLUDED.admin_address,
			jetton_content = EXCLUDED.jetton_content,
			jetton_wallet_code_hash = EXCLUDED.jetton_wallet_code_hash,
			data_hash = EXCLUDED.data_hash,
			code_hash = EXCLUDED.code_hash,
			last_transaction_lt = EXCLUDED.last_transaction_lt,
			code_boc = EXCLUDED.code_boc,
			data_boc = EXCLUDED.data_boc
		WHERE jetton_masters.last_transaction_lt < EXCLUDED.last_transaction_lt`,
		m.Address, m.TotalSupply.Dec(), m.Mintable, m.AdminAddress, content,
		m.JettonWalletCodeHash, m.DataHash, m.CodeHash, m.LastTransactionLt, m.CodeBOC, m.DataBOC,
	)
	if err != nil {
		return wrapErr("upsert_jetton_master", err)
	}
	s.rememberLt(cacheKey, m.LastTransactionLt)
	return nil
}

// GetJettonMaster looks up a stored master snapshot by address, rehydrating
// jetton_content back into a map so reads return the same typed shape the
// write side accepts.
func (s *Snapshots) GetJettonMaster(ctx context.Context, addr string) (*schema.JettonMasterData, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	var m schema.JettonMasterData
	var totalSupply string
	var content []byte
	row := s.pool.QueryRow(ctx, `
		SELECT address, total_supply, mintable, admin_address, jetton_content,
			jetton_wallet_code_hash, data_hash, code_hash, last_transaction_lt, code_boc, data_boc
		FROM jetton_masters WHERE address = $1`, addr)
	if err := row.Scan(&m.Address, &totalSupply, &m.Mintable, &m.AdminAddress, &content,
		&m.JettonWalletCodeHash, &m.DataHash, &m.CodeHash, &m.LastTransactionLt, &m.CodeBOC, &m.DataBOC); err != nil {
		return nil, wrapErr("get_jetton_master", err)
	}
	ts, err := parseUint256(totalSupply)
	if err != nil {
		return nil, schema.DBError("get_jetton_master", err)
	}
	m.TotalSupply = ts
	if len(content) > 0 {
		if err := json.Unmarshal(content, &m.JettonContent); err != nil {
			return nil, schema.DBError("get_jetton_master", err)
		}
	}
	return &m, nil
}

// UpsertNFTCollection applies the LWW guard for NFT collections.
func (s *Snapshots) UpsertNFTCollection(ctx context.Context, c *schema.NFTCollectionData) error {
	cacheKey := "nc:" + c.Address
	if s.staleAgainstCache(cacheKey, c.LastTransactionLt) {
		return nil
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	content, err := json.Marshal(c.CollectionContent)
	if err != nil {
		return schema.DBError("upsert_nft_collection", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO nft_collections (address, next_item_index, owner_address, collection_content,
			data_hash, code_hash, last_transaction_lt, code_boc, data_boc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address) DO UPDATE SET
			next_item_index = EXCLUDED.next_item_index,
			owner_address = EXCLUDED.owner_address,
			collection_content = EXCLUDED.collection_content,
			data_hash = EXCLUDED.data_hash,
			code_hash = EXCLUDED.code_hash,
			last_transaction_lt = EXCLUDED.last_transaction_lt,
			code_boc = EXCLUDED.code_boc,
			data_boc = EXCLUDED.data_boc
		WHERE nft_collections.last_transaction_lt < EXCLUDED.last_transaction_lt`,
		c.Address, c.NextItemIndex.Dec(), c.OwnerAddress, content,
		c.DataHash, c.CodeHash, c.LastTransactionLt, c.CodeBOC, c.DataBOC,
	)
	if err != nil {
		return wrapErr("upsert_nft_collection", err)
	}
	s.rememberLt(cacheKey, c.LastTransactionLt)
	return nil
}

// GetNFTCollection looks up a stored collection snapshot by address.
func (s *Snapshots) GetNFTCollection(ctx context.Context, addr string) (*schema.NFTCollectionData, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	var c schema.NFTCollectionData
	var nextItemIndex string
	var content []byte
	row := s.pool.QueryRow(ctx, `
		SELECT address, next_item_index, owner_address, collection_content,
			data_hash, code_hash, last_transaction_lt, code_boc, data_boc
		FROM nft_collections WHERE address = $1`, addr)
	if err := row.Scan(&c.Address, &nextItemIndex, &c.OwnerAddress, &content,
		&c.DataHash, &c.CodeHash, &c.LastTransactionLt, &c.CodeBOC, &c.DataBOC); err != nil {
		return nil, wrapErr("get_nft_collection", err)
	}
	idx, err := parseUint256(nextItemIndex)
	if err != nil {
		return nil, schema.DBError("get_nft_collection", err)
	}
	c.NextItemIndex = idx
	if len(content) > 0 {
		if err := json.Unmarshal(content, &c.CollectionContent); err != nil {
			return nil, schema.DBError("get_nft_collection", err)
		}
	}
	return &c, nil
}

// UpsertNFTItem applies the LWW guard for NFT items.
func (s *Snapshots) UpsertNFTItem(ctx context.Context, i *schema.NFTItemData) error {
	cacheKey := "ni:" + i.Address
	if s.staleAgainstCache(cacheKey, i.LastTransactionLt) {
		return nil
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	content, err := json.Marshal(i.Content)
	if err != nil {
		return schema.DBError("upsert_nft_item", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO nft_items (address, init, index, collection_address, owner_address, content,
			last_transaction_lt, code_hash, data_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address) DO UPDATE SET
			init = EXCLUDED.init,
			index = EXCLUDED.index,
			collection_address = EXCLUDED.collection_address,
			owner_address = EXCLUDED.owner_address,
			content = EXCLUDED.content,
			last_transaction_lt = EXCLUDED.last_transaction_lt,
			code_hash = EXCLUDED.code_hash,
			data_hash = EXCLUDED.data_hash
		WHERE nft_items.last_transaction_lt < EXCLUDED.last_transaction_lt`,
		i.Address, i.Init, i.Index.Dec(), i.CollectionAddress, i.OwnerAddress, content,
		i.LastTransactionLt, i.CodeHash, i.DataHash,
	)
	if err != nil {
		return wrapErr("upsert_nft_item", err)
	}
	s.rememberLt(cacheKey, i.LastTransactionLt)
	return nil
}

// GetNFTItem looks up a stored item snapshot by address.
func (s *Snapshots) GetNFTItem(ctx context.Context, addr string) (*schema.NFTItemData, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	var i schema.NFTItemData
	var index string
	var content []byte
	row := s.pool.QueryRow(ctx, `
		SELECT address, init, index, collection_address, owner_address, content,
			last_transaction_lt, code_hash, data_hash
		FROM nft_items WHERE address = $1`, addr)
	if err := row.Scan(&i.Address, &i.Init, &index, &i.CollectionAddress, &i.OwnerAddress, &content,
		&i.LastTransactionLt, &i.CodeHash, &i.DataHash); err != nil {
		return nil, wrapErr("get_nft_item", err)
	}
	idx, err := parseUint256(index)
	if err != nil {
		return nil, schema.DBError("get_nft_item", err)
	}
	i.Index = idx
	if len(content) > 0 {
		if err := json.Unmarshal(content, &i.Content); err != nil {
			return nil, schema.DBError("get_nft_item", err)
		}
	}
	return &i, nil
}
