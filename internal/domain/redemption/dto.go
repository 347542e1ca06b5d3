// internal/domain/redemption/dto.go
package redemption

type RedeemRequest struct {
	StoreID  int64  `json:"storeId" binding:"required"`
	StaffPIN string `json:"staffPin" binding:"required"`
	DeviceID string `json:"deviceId"`
}
