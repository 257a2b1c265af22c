package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Effec77/aidflow/config"
	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/infra/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo centers, inventory and an example emergency",
	RunE:  seed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.New(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	centers := []model.Center{
		{ID: "chd-sec17", Name: "Chandigarh Sector 17 Relief Hub", Location: model.Coordinates{Lat: 30.7433, Lon: 76.7839}},
		{ID: "pkl-sec5", Name: "Panchkula Sector 5 Depot", Location: model.Coordinates{Lat: 30.6942, Lon: 76.8606}},
		{ID: "mohali-ph7", Name: "Mohali Phase 7 Warehouse", Location: model.Coordinates{Lat: 30.7046, Lon: 76.7179}},
	}
	for _, c := range centers {
		if err := st.UpsertCenter(ctx, c); err != nil {
			return err
		}
	}

	records := []model.InventoryRecord{
		{ID: "chd-medkit", Name: "medical_kit", Category: model.CategoryMedical, CurrentStock: 120, MinThreshold: 20, MaxCapacity: 200, Unit: "kit", CenterID: "chd-sec17"},
		{ID: "chd-water", Name: "water_bottle", Category: model.CategoryWater, CurrentStock: 800, MinThreshold: 100, MaxCapacity: 1500, Unit: "bottle", CenterID: "chd-sec17"},
		{ID: "pkl-tent", Name: "tent", Category: model.CategoryShelter, CurrentStock: 60, MinThreshold: 10, MaxCapacity: 100, Unit: "unit", CenterID: "pkl-sec5"},
		{ID: "pkl-food", Name: "food_packet", Category: model.CategoryFood, CurrentStock: 500, MinThreshold: 50, MaxCapacity: 1000, Unit: "packet", CenterID: "pkl-sec5"},
		{ID: "moh-gen", Name: "generator", Category: model.CategoryEquipment, CurrentStock: 8, MinThreshold: 2, MaxCapacity: 12, Unit: "unit", CenterID: "mohali-ph7"},
		{ID: "moh-medkit", Name: "medical_kit", Category: model.CategoryMedical, CurrentStock: 40, MinThreshold: 10, MaxCapacity: 80, Unit: "kit", CenterID: "mohali-ph7"},
	}
	for _, r := range records {
		if err := st.UpsertInventory(ctx, r); err != nil {
			return err
		}
	}

	em := &model.Emergency{
		ID:       "demo-flood",
		Kind:     "flood",
		Severity: model.SeverityHigh,
		Location: model.Coordinates{Lat: 30.7200, Lon: 76.8600},
		RequiredResources: []model.ResourceRequirement{
			{Name: "medical_kit", Category: model.CategoryMedical, Quantity: 25},
			{Name: "water_bottle", Category: model.CategoryWater, Quantity: 200},
			{Name: "tent", Category: model.CategoryShelter, Quantity: 15},
		},
	}
	if err := st.CreateEmergency(ctx, em); err != nil {
		return err
	}

	zone := model.DisasterZone{
		ID:       "demo-flood-zone",
		Center:   model.Coordinates{Lat: 30.7300, Lon: 76.8400},
		RadiusKm: 8,
		Severity: model.ZoneHigh,
		Status:   "active",
	}
	if err := st.UpsertZone(ctx, zone); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d centers, %d inventory records, emergency %s, zone %s\n",
		len(centers), len(records), em.ID, zone.ID)
	return nil
}
