package requests

type UpdateBlock struct {
	LastBlock uint64 `json:"last_block"`
}

func NewUpdateBlock(lastBlock uint64) UpdateBlock {
	return UpdateBlock{LastBlock: lastBlock}
}
