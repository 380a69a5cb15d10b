package schema

import "github.com/holiman/uint256"

// Domain event tables are keyed to a transaction hash; the detector that
// produces these values is an external collaborator, and this package only
// defines the shape it hands off.

type JettonTransfer struct {
	TransactionHash     string
	QueryID             uint64
	Amount              *uint256.Int
	Destination         string
	ResponseDestination *string
	CustomPayload       *string
	ForwardTonAmount    *uint256.Int
	ForwardPayload      *string
}

type JettonBurn struct {
	TransactionHash     string
	QueryID             uint64
	Amount              *uint256.Int
	ResponseDestination *string
	CustomPayload       *string
}

type NFTTransfer struct {
	TransactionHash     string
	QueryID             uint64
	NFTItem             string
	OldOwner            string
	NewOwner            string
	ResponseDestination *string
	CustomPayload       *string
	ForwardAmount       *uint256.Int
	ForwardPayload      *string
}

// Bundle is one unit of work for the Insert Batcher: a parsed block plus the
// domain events an external detector produced for the same span of
// transactions. The detector is out of scope for this package (see the
// comment above); Bundle is only the handoff shape the batcher queues.
type Bundle struct {
	Parsed          *ParsedBlock
	JettonTransfers []*JettonTransfer
	JettonBurns     []*JettonBurn
	NFTTransfers    []*NFTTransfer
}

// Domain snapshot entities are keyed by contract address and carry
// LastTransactionLt, the field every upsert's last-writer-wins guard
// compares against the stored row.

type JettonWalletData struct {
	Balance           *uint256.Int
	Address           string
	Owner             string
	Jetton            string
	LastTransactionLt uint64
	CodeHash          string
	DataHash          string
}

type JettonMasterData struct {
	Address              string
	TotalSupply          *uint256.Int
	Mintable             bool
	AdminAddress         *string
	JettonContent        map[string]interface{}
	JettonWalletCodeHash string
	DataHash             string
	CodeHash             string
	LastTransactionLt    uint64
	CodeBOC              string
	DataBOC              string
}

type NFTCollectionData struct {
	Address           string
	NextItemIndex     *uint256.Int
	OwnerAddress      *string
	CollectionContent map[string]interface{}
	DataHash          string
	CodeHash          string
	LastTransactionLt uint64
	CodeBOC           string
	DataBOC           string
}

type NFTItemData struct {
	Address           string
	Init              bool
	Index             *uint256.Int
	CollectionAddress *string
	OwnerAddress      *string
	Content           map[string]interface{}
	LastTransactionLt uint64
	CodeHash          string
	DataHash          string
}
